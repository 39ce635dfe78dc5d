// Package chat manages the conversation transcript with the assistant agent.
package chat

import (
	"fmt"
	"sync"

	"github.com/tecem/srma/internal/domain"
)

// EventKind names a transcript mutation.
type EventKind string

const (
	EventAppended EventKind = "message_appended"
	EventUpdated  EventKind = "message_updated"
	EventReset    EventKind = "transcript_reset"
)

// Event is a transcript mutation delivered to a Recorder.
type Event struct {
	Kind    EventKind
	Message domain.ChatMessage
}

// Recorder observes transcript mutations. Record must not block.
type Recorder interface {
	Record(Event)
}

// Transcript is the ordered message list of one mounted conversation.
// IDs come from a counter issued at creation time, so they stay unique
// under overlapping sends and across resets. Reset starts a new
// generation; writers holding a stale generation are refused.
type Transcript struct {
	mu         sync.RWMutex
	messages   []domain.ChatMessage
	nextID     int64
	generation uint64
	recorder   Recorder
}

// NewTranscript creates an empty transcript.
func NewTranscript(rec Recorder) *Transcript {
	return &Transcript{nextID: 1, recorder: rec}
}

// Reserve allocates n consecutive ids and returns the first together with
// the current generation.
func (t *Transcript) Reserve(n int) (int64, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	first := t.nextID
	t.nextID += int64(n)
	return first, t.generation
}

// Insert appends msg, whose id must come from Reserve, if gen is still current.
func (t *Transcript) Insert(gen uint64, msg domain.ChatMessage) bool {
	t.mu.Lock()
	if gen != t.generation {
		t.mu.Unlock()
		return false
	}
	msg = msg.Clone()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()

	t.record(EventAppended, msg)
	return true
}

// Append allocates an id and appends a message in the current generation.
func (t *Transcript) Append(sender domain.Sender, text string, att *domain.AttachmentRef) domain.ChatMessage {
	t.mu.Lock()
	msg := domain.ChatMessage{ID: t.nextID, Sender: sender, Text: text, Attachment: att}.Clone()
	t.nextID++
	t.messages = append(t.messages, msg)
	t.mu.Unlock()

	t.record(EventAppended, msg)
	return msg.Clone()
}

// Update mutates the message with the given id in place. fn runs under the
// transcript lock and must not call back into the transcript.
func (t *Transcript) Update(id int64, fn func(*domain.ChatMessage) error) (domain.ChatMessage, error) {
	t.mu.Lock()
	idx := -1
	for i := range t.messages {
		if t.messages[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.mu.Unlock()
		return domain.ChatMessage{}, fmt.Errorf("message %d not in transcript", id)
	}

	working := t.messages[idx].Clone()
	if err := fn(&working); err != nil {
		t.mu.Unlock()
		return domain.ChatMessage{}, err
	}
	working.ID = id
	t.messages[idx] = working
	t.mu.Unlock()

	t.record(EventUpdated, working)
	return working.Clone(), nil
}

// Get returns a copy of the message with the given id.
func (t *Transcript) Get(id int64) (domain.ChatMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, m := range t.messages {
		if m.ID == id {
			return m.Clone(), true
		}
	}
	return domain.ChatMessage{}, false
}

// Snapshot returns a copy of the transcript in display order.
func (t *Transcript) Snapshot() []domain.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.ChatMessage, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Reset replaces the transcript with seed and starts a new generation.
// The id counter keeps running, so updates aimed at a discarded message
// cannot land on a seeded one.
func (t *Transcript) Reset(seed []SeedMessage) {
	t.mu.Lock()
	t.generation++
	t.messages = make([]domain.ChatMessage, 0, len(seed))
	for _, s := range seed {
		t.messages = append(t.messages, domain.ChatMessage{ID: t.nextID, Sender: s.Sender, Text: s.Text})
		t.nextID++
	}
	t.mu.Unlock()

	t.record(EventReset, domain.ChatMessage{})
}

func (t *Transcript) record(kind EventKind, msg domain.ChatMessage) {
	if t.recorder != nil {
		t.recorder.Record(Event{Kind: kind, Message: msg})
	}
}
