package notify

import (
	"context"
	"strings"
	"sync"
)

// Recorder captures alerts and surface traffic in memory. It can be told to
// fail sends or edits.
type Recorder struct {
	mu      sync.Mutex
	alerts  []string
	sent    []Sent
	edits   []Sent
	next    MessageHandle
	SendErr error
	EditErr error
}

// Sent is one captured surface message.
type Sent struct {
	ChatID int64
	Handle MessageHandle
	Text   string
}

// Alert records msg.
func (r *Recorder) Alert(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, msg)
}

// Send records a message unless SendErr is set.
func (r *Recorder) Send(_ context.Context, chatID int64, text string) (MessageHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		return 0, r.SendErr
	}
	r.next++
	r.sent = append(r.sent, Sent{ChatID: chatID, Handle: r.next, Text: text})
	return r.next, nil
}

// Edit records an edit unless EditErr is set.
func (r *Recorder) Edit(_ context.Context, chatID int64, handle MessageHandle, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.EditErr != nil {
		return r.EditErr
	}
	r.edits = append(r.edits, Sent{ChatID: chatID, Handle: handle, Text: text})
	return nil
}

// Alerts returns a copy of the recorded alerts.
func (r *Recorder) Alerts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}

// AlertContaining reports whether any alert contains substr.
func (r *Recorder) AlertContaining(substr string) bool {
	for _, a := range r.Alerts() {
		if strings.Contains(a, substr) {
			return true
		}
	}
	return false
}

// Sent returns a copy of the sent messages.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Edits returns a copy of the recorded edits.
func (r *Recorder) Edits() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.edits...)
}
