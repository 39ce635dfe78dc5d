package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tecem/srma/internal/backend"
	"github.com/tecem/srma/internal/domain"
)

const (
	// FallbackReply is shown when the agent answers without a response field.
	FallbackReply = "El agente no devolvió una respuesta."
	errorReplyFmt = "Error: No se pudo conectar con el agente. (%v)"
)

var (
	// ErrEmptyInput is returned for blank input; nothing is appended.
	ErrEmptyInput = errors.New("empty message")
	// ErrClosed is returned when the manager was torn down before the reply arrived.
	ErrClosed = errors.New("chat manager closed")
	// ErrStale is returned when the transcript was reseeded while a reply was in flight.
	ErrStale = errors.New("transcript was reset")
)

// Sender is the backend chat call.
type Sender interface {
	Chat(ctx context.Context, token string, req backend.ChatRequest) (*backend.ChatResponse, error)
}

// TokenSource provides the current bearer token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// AuthExpiredFunc is called when the backend rejects the session.
type AuthExpiredFunc func(ctx context.Context)

// Options configures a Manager.
type Options struct {
	Sender      Sender
	Tokens      TokenSource
	Agents      Agents
	Recorder    Recorder
	OnAuthError AuthExpiredFunc
	Logger      *slog.Logger
}

// Exchange is the outcome of one send.
type Exchange struct {
	User  domain.ChatMessage
	Reply domain.ChatMessage
	// Err is the backend failure rendered into Reply, if any.
	Err error
}

// Manager owns the transcript of one conversation view. Sends may overlap.
type Manager struct {
	transcript  *Transcript
	sender      Sender
	tokens      TokenSource
	agents      Agents
	onAuthError AuthExpiredFunc
	logger      *slog.Logger

	mu   sync.RWMutex
	role domain.Role

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a manager seeded for role.
func NewManager(role domain.Role, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Agents == (Agents{}) {
		opts.Agents = DefaultAgents()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		transcript:  NewTranscript(opts.Recorder),
		sender:      opts.Sender,
		tokens:      opts.Tokens,
		agents:      opts.Agents,
		onAuthError: opts.OnAuthError,
		logger:      opts.Logger,
		role:        role,
		ctx:         ctx,
		cancel:      cancel,
	}
	m.transcript.Reset(Seed(role))
	return m
}

// Transcript exposes the underlying transcript.
func (m *Manager) Transcript() *Transcript {
	return m.transcript
}

// Messages returns a snapshot of the transcript.
func (m *Manager) Messages() []domain.ChatMessage {
	return m.transcript.Snapshot()
}

// Role returns the role the transcript is seeded for.
func (m *Manager) Role() domain.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.role
}

// Reseed resets the transcript when the role changed. It reports whether it did.
func (m *Manager) Reseed(role domain.Role) bool {
	m.mu.Lock()
	if m.role == role {
		m.mu.Unlock()
		return false
	}
	m.role = role
	m.mu.Unlock()

	m.transcript.Reset(Seed(role))
	return true
}

// Close cancels in-flight calls; late replies are discarded.
func (m *Manager) Close() {
	m.cancel()
}

// SendText appends the user's message immediately and then waits for the
// agent. Backend failures become an agent error message; the user message is
// never rolled back.
func (m *Manager) SendText(ctx context.Context, text string) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	p, err := m.Begin(text, nil)
	if err != nil {
		return nil, err
	}
	return m.SendWithAttachments(ctx, p, nil)
}

// Pending is a user message already in the transcript whose reply slot is reserved.
type Pending struct {
	User       domain.ChatMessage
	ReplyID    int64
	Generation uint64
}

// Begin reserves a user message and its reply slot and appends the message.
// It returns ErrStale if the transcript was reset before the message landed.
// It is used by callers that must show the message before the chat call,
// such as the attachment pipeline.
func (m *Manager) Begin(text string, att *domain.AttachmentRef) (Pending, error) {
	if err := m.ctx.Err(); err != nil {
		return Pending{}, ErrClosed
	}
	first, gen := m.transcript.Reserve(2)
	return m.admit(Pending{
		User:       domain.ChatMessage{ID: first, Sender: domain.SenderUser, Text: text, Attachment: att},
		ReplyID:    first + 1,
		Generation: gen,
	})
}

// admit inserts the reserved user message. A reset between Reserve and
// Insert drops the message, and the caller must not send it.
func (m *Manager) admit(p Pending) (Pending, error) {
	if !m.transcript.Insert(p.Generation, p.User) {
		m.logger.Debug("dropped message reserved before reset", "id", p.User.ID)
		return Pending{}, ErrStale
	}
	p.User = p.User.Clone()
	return p, nil
}

// SendWithAttachments issues the chat call for a pending user message,
// forwarding attachments as "adjuntos", and appends the agent's reply in its
// reserved slot.
func (m *Manager) SendWithAttachments(ctx context.Context, p Pending, attachments []backend.ChatAttachment) (*Exchange, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.ctx, cancel)
	defer stop()

	token, err := m.tokens.Token(callCtx)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	req := backend.ChatRequest{
		AgentID:     m.agents.For(m.Role()),
		Message:     p.User.Text,
		Attachments: attachments,
	}
	resp, callErr := m.sender.Chat(callCtx, token, req)

	if m.ctx.Err() != nil {
		m.logger.Debug("discarding agent reply after close", "message_id", p.User.ID)
		return nil, ErrClosed
	}

	reply := domain.ChatMessage{ID: p.ReplyID, Sender: domain.SenderAgent}
	switch {
	case callErr != nil:
		m.logger.Warn("agent chat failed", "message_id", p.User.ID, "error", callErr)
		reply.Text = fmt.Sprintf(errorReplyFmt, callErr)
		if backend.IsAuthError(callErr) && m.onAuthError != nil {
			m.onAuthError(ctx)
		}
	case resp.Response == "":
		reply.Text = FallbackReply
	default:
		reply.Text = resp.Response
	}

	if !m.transcript.Insert(p.Generation, reply) {
		return nil, ErrStale
	}

	user, _ := m.transcript.Get(p.User.ID)
	return &Exchange{User: user, Reply: reply, Err: callErr}, nil
}

// AppendAgentNotice adds a standalone agent message, used for inline errors.
func (m *Manager) AppendAgentNotice(text string) domain.ChatMessage {
	return m.transcript.Append(domain.SenderAgent, text, nil)
}
