// Package orders turns baskets into orders and mirrors their status to the
// buyer and to the operations channel.
package orders

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of an order.
type Status int

const (
	StatusPlaced Status = iota
	StatusInTransit
	StatusAwaitingPickup
	StatusReceived
	StatusCancelled
)

var (
	// ErrUnknownStatus is returned for a status code outside the enum.
	ErrUnknownStatus = errors.New("unknown order status")
	// ErrTransition is returned when a transition hook rejects a change.
	ErrTransition = errors.New("status transition not allowed")
)

var statusLabels = [...]string{
	StatusPlaced:         "📝 Оформлен",
	StatusInTransit:      "🚚 В пути",
	StatusAwaitingPickup: "🕘 Ожидает получения",
	StatusReceived:       "✅ Получен",
	StatusCancelled:      "❌ Отменён",
}

// Statuses lists every status in code order.
func Statuses() []Status {
	return []Status{StatusPlaced, StatusInTransit, StatusAwaitingPickup, StatusReceived, StatusCancelled}
}

// ParseStatus converts a stored code into a Status.
func ParseStatus(code int) (Status, error) {
	s := Status(code)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownStatus, code)
	}
	return s, nil
}

// Valid reports whether s is one of the five known states.
func (s Status) Valid() bool {
	return s >= StatusPlaced && s <= StatusCancelled
}

// Label is the buyer-facing name of the status.
func (s Status) Label() string {
	if !s.Valid() {
		return "Неизвестен"
	}
	return statusLabels[s]
}

func (s Status) String() string {
	return s.Label()
}

// Cancellable reports whether a buyer may still cancel an order in this state.
func (s Status) Cancellable() bool {
	return s == StatusPlaced
}

// TransitionFunc approves or rejects a status change.
type TransitionFunc func(from, to Status) error

// AnyTransition allows every change. Operators may move an order freely.
func AnyTransition(from, to Status) error {
	return nil
}

// ForwardOnly allows staying put and moving forward, and treats received and
// cancelled as terminal.
func ForwardOnly(from, to Status) error {
	if from == to {
		return nil
	}
	if from == StatusReceived || from == StatusCancelled || to < from {
		return fmt.Errorf("%w: %s -> %s", ErrTransition, from.Label(), to.Label())
	}
	return nil
}
