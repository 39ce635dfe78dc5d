// Package chatlog writes transcript events to per-session NDJSON files.
package chatlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tecem/srma/internal/chat"
	"github.com/tecem/srma/internal/domain"
)

// Config controls the recorder.
type Config struct {
	Dir       string
	QueueSize int
	// SessionID names the output file. A random id is used when empty.
	SessionID string
}

// Entry is one NDJSON line.
type Entry struct {
	Timestamp time.Time           `json:"ts"`
	SessionID string              `json:"session_id"`
	Event     chat.EventKind      `json:"event"`
	Message   *domain.ChatMessage `json:"message,omitempty"`
}

// Recorder queues transcript events and writes them from a background goroutine.
// Record never blocks; events are dropped when the queue is full.
type Recorder struct {
	sessionID string
	path      string
	file      *os.File
	queue     chan Entry
	logger    *slog.Logger

	dropped atomic.Int64
	closed  atomic.Bool
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

// New opens <dir>/<session>.ndjson and starts the writer.
func New(cfg Config, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create chat log directory: %w", err)
	}

	path := filepath.Join(cfg.Dir, cfg.SessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open chat log: %w", err)
	}

	r := &Recorder{
		sessionID: cfg.SessionID,
		path:      path,
		file:      f,
		queue:     make(chan Entry, cfg.QueueSize),
		logger:    logger,
	}
	r.wg.Add(1)
	go r.run()
	return r, nil
}

// Path returns the file being written.
func (r *Recorder) Path() string { return r.path }

// Dropped returns how many events were discarded because the queue was full.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Record implements chat.Recorder.
func (r *Recorder) Record(ev chat.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed.Load() {
		return
	}

	entry := Entry{Timestamp: time.Now().UTC(), SessionID: r.sessionID, Event: ev.Kind}
	if ev.Kind != chat.EventReset {
		msg := ev.Message.Clone()
		entry.Message = &msg
	}

	select {
	case r.queue <- entry:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			r.logger.Warn("chat log queue full, dropping events", "dropped", n)
		}
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	enc := json.NewEncoder(r.file)
	for entry := range r.queue {
		if err := enc.Encode(entry); err != nil {
			r.logger.Error("write chat log", "path", r.path, "error", err)
		}
	}
}

// Close stops accepting events, writes what is queued and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed.Swap(true) {
		r.mu.Unlock()
		return nil
	}
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close chat log: %w", err)
	}
	return nil
}

var _ chat.Recorder = (*Recorder)(nil)
