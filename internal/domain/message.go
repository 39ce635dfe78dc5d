package domain

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// AttachmentStatus is the upload state of an attachment.
type AttachmentStatus string

const (
	AttachmentPending AttachmentStatus = "pending"
	AttachmentSuccess AttachmentStatus = "success"
	AttachmentFailed  AttachmentStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s AttachmentStatus) Terminal() bool {
	return s == AttachmentSuccess || s == AttachmentFailed
}

// ErrAttachmentSettled is returned when settling an attachment that already left pending.
var ErrAttachmentSettled = errors.New("attachment already settled")

// AttachmentRef describes a file attached to a user message.
type AttachmentRef struct {
	FileName  string           `json:"file_name"`
	Status    AttachmentStatus `json:"status"`
	RemoteURL string           `json:"remote_url,omitempty"`
}

// Settle moves a pending attachment to a terminal state.
// The remote URL is only kept on success.
func (a *AttachmentRef) Settle(status AttachmentStatus, remoteURL string) error {
	if a.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrAttachmentSettled, a.Status)
	}
	if !status.Terminal() {
		return fmt.Errorf("invalid attachment transition to %q", status)
	}
	a.Status = status
	if status == AttachmentSuccess {
		a.RemoteURL = remoteURL
	}
	return nil
}

// ChatMessage is a single transcript entry.
type ChatMessage struct {
	ID         int64          `json:"id"`
	Sender     Sender         `json:"sender"`
	Text       string         `json:"text"`
	Attachment *AttachmentRef `json:"attachment,omitempty"`
}

// Clone returns a deep copy of the message.
func (m ChatMessage) Clone() ChatMessage {
	if m.Attachment != nil {
		a := *m.Attachment
		m.Attachment = &a
	}
	return m
}

// PendingUpload is a local file about to be uploaded. It is never persisted.
type PendingUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Extension returns the lowercase file extension without the dot, or "" when absent.
func Extension(fileName string) string {
	ext := path.Ext(fileName)
	if ext == "" || ext == fileName {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
