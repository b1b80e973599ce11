// Package notify carries operator alerts and chat-surface messages.
//
// The chat transport itself lives outside this module. Surfaces receive
// already rendered text and hand back an opaque handle usable for later edits.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// MessageHandle identifies a message sent to a surface.
type MessageHandle int64

// ErrUnknownHandle is returned by Edit for a handle the surface never issued.
var ErrUnknownHandle = errors.New("unknown message handle")

// Alerter routes actionable problems to the operator.
type Alerter interface {
	Alert(ctx context.Context, msg string)
}

// Surface is a chat destination that can receive and later edit messages.
type Surface interface {
	Send(ctx context.Context, chatID int64, text string) (MessageHandle, error)
	Edit(ctx context.Context, chatID int64, handle MessageHandle, text string) error
}

// LogAlerter writes alerts to a structured logger.
type LogAlerter struct {
	log *slog.Logger
}

// NewLogAlerter returns an Alerter over log.
func NewLogAlerter(log *slog.Logger) *LogAlerter {
	if log == nil {
		log = slog.Default()
	}
	return &LogAlerter{log: log}
}

// Alert logs msg at warn level.
func (a *LogAlerter) Alert(ctx context.Context, msg string) {
	a.log.WarnContext(ctx, "operator alert", "message", msg)
}

// LogSurface logs every message and remembers the latest text per handle.
type LogSurface struct {
	log  *slog.Logger
	next atomic.Int64

	mu       sync.Mutex
	messages map[MessageHandle]string
}

// NewLogSurface returns a Surface that only logs.
func NewLogSurface(log *slog.Logger) *LogSurface {
	if log == nil {
		log = slog.Default()
	}
	return &LogSurface{log: log, messages: make(map[MessageHandle]string)}
}

// Send logs text and issues a fresh handle.
func (s *LogSurface) Send(ctx context.Context, chatID int64, text string) (MessageHandle, error) {
	h := MessageHandle(s.next.Add(1))
	s.mu.Lock()
	s.messages[h] = text
	s.mu.Unlock()
	s.log.InfoContext(ctx, "message sent", "chat_id", chatID, "handle", int64(h))
	return h, nil
}

// Edit replaces the text behind handle.
func (s *LogSurface) Edit(ctx context.Context, chatID int64, handle MessageHandle, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[handle]; !ok {
		return ErrUnknownHandle
	}
	s.messages[handle] = text
	s.log.InfoContext(ctx, "message edited", "chat_id", chatID, "handle", int64(handle))
	return nil
}

// Text returns the current text behind handle.
func (s *LogSurface) Text(handle MessageHandle) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.messages[handle]
	return text, ok
}
