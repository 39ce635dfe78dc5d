// Package attachment uploads a local file through a signed URL and hands
// the resulting reference to the chat agent.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/tecem/srma/internal/backend"
	"github.com/tecem/srma/internal/chat"
	"github.com/tecem/srma/internal/domain"
	"github.com/tecem/srma/internal/nav"
)

const (
	captionFmt     = "Adjuntando %s"
	failurePrefix  = "[Error al adjuntar] "
	sessionExpired = "Error: Tu sesión ha expirado. Inicia sesión de nuevo."
)

// ErrUploadInFlight is returned when a second upload starts before the first one settles.
var ErrUploadInFlight = errors.New("an upload is already in progress")

// Uploader is the storage half of the backend client.
type Uploader interface {
	GenerateUploadURL(ctx context.Context, token, fileName, contentType string) (*backend.UploadTarget, error)
	Upload(ctx context.Context, signedURL, contentType string, body io.Reader, size int64) error
}

// Session is the subset of the session manager the pipeline needs.
type Session interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Pipeline runs one attachment at a time.
type Pipeline struct {
	chat     *chat.Manager
	uploader Uploader
	session  Session
	nav      nav.Navigator
	logger   *slog.Logger

	inFlight atomic.Bool
}

// New creates a pipeline that appends to the given chat manager.
func New(cm *chat.Manager, up Uploader, s Session, n nav.Navigator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{chat: cm, uploader: up, session: s, nav: n, logger: logger}
}

// Busy reports whether an upload is in progress.
func (p *Pipeline) Busy() bool {
	return p.inFlight.Load()
}

// AttachAndSend shows a pending message, uploads the file and, once the
// object is stored, sends the text with the attachment to the agent.
// Upload failures mark the message failed and skip the chat call. A
// successful upload is not removed if the chat call fails afterwards.
func (p *Pipeline) AttachAndSend(ctx context.Context, up domain.PendingUpload, text string) (*chat.Exchange, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return nil, ErrUploadInFlight
	}
	defer p.inFlight.Store(false)

	token, err := p.session.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", up.FileName, err)
	}
	if token == "" {
		p.chat.AppendAgentNotice(sessionExpired)
		p.nav.Redirect(nav.Login)
		return nil, fmt.Errorf("attach %s: %w", up.FileName, backend.ErrAuthExpired)
	}

	caption := strings.TrimSpace(text)
	if caption == "" {
		caption = fmt.Sprintf(captionFmt, up.FileName)
	}
	pending, err := p.chat.Begin(caption, &domain.AttachmentRef{
		FileName: up.FileName,
		Status:   domain.AttachmentPending,
	})
	if err != nil {
		return nil, err
	}

	publicURL, err := p.upload(ctx, token, up)
	if err != nil {
		p.logger.Warn("attachment upload failed", "file", up.FileName, "error", err)
		if markErr := p.settle(pending.User.ID, domain.AttachmentFailed, ""); markErr != nil {
			p.logger.Error("could not mark attachment failed", "message_id", pending.User.ID, "error", markErr)
		}
		if backend.IsAuthError(err) {
			if clearErr := p.session.Clear(ctx); clearErr != nil {
				p.logger.Error("could not clear session", "error", clearErr)
			}
			p.nav.Redirect(nav.Login)
		}
		return nil, fmt.Errorf("attach %s: %w", up.FileName, err)
	}

	if err := p.settle(pending.User.ID, domain.AttachmentSuccess, publicURL); err != nil {
		return nil, fmt.Errorf("attach %s: %w", up.FileName, err)
	}
	p.logger.Info("attachment uploaded", "file", up.FileName, "url", publicURL)

	// The message text may be the synthesized caption; the agent only gets what the user typed.
	pending.User.Text = strings.TrimSpace(text)
	return p.chat.SendWithAttachments(ctx, pending, []backend.ChatAttachment{{
		Name:      up.FileName,
		Extension: domain.Extension(up.FileName),
		URL:       publicURL,
	}})
}

func (p *Pipeline) upload(ctx context.Context, token string, up domain.PendingUpload) (string, error) {
	target, err := p.uploader.GenerateUploadURL(ctx, token, up.FileName, up.ContentType)
	if err != nil {
		return "", err
	}
	if err := p.uploader.Upload(ctx, target.SignedURL, up.ContentType, up.Body, up.Size); err != nil {
		return "", err
	}
	return target.PublicURL, nil
}

func (p *Pipeline) settle(id int64, status domain.AttachmentStatus, url string) error {
	_, err := p.chat.Transcript().Update(id, func(m *domain.ChatMessage) error {
		if m.Attachment == nil {
			return fmt.Errorf("message %d has no attachment", id)
		}
		if err := m.Attachment.Settle(status, url); err != nil {
			return err
		}
		if status == domain.AttachmentFailed {
			m.Text = failurePrefix + m.Text
		}
		return nil
	})
	return err
}
