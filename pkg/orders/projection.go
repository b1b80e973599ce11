package orders

import (
	"context"
	"fmt"

	"github.com/nikixstore/storefront/pkg/notify"
)

// Event is one status change, delivered to every projection.
type Event struct {
	View View
	From Status
	To   Status
}

// Projection renders an order event onto one surface.
type Projection interface {
	Name() string
	Project(ctx context.Context, ev Event) error
}

// Sink binds a projection to its failure policy.
type Sink struct {
	Projection Projection
	// Retries is the number of extra attempts after the first failure.
	Retries uint64
	// Alert routes a final failure to the operator as a MirrorError.
	// Without it the failure is only logged.
	Alert bool
}

// MirrorError reports that an order's status was stored but a surface still
// shows the old state.
type MirrorError struct {
	DisplayID int64
	Sink      string
	Status    Status
	Err       error
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("order #%d: %s mirror not updated to %q: %v", e.DisplayID, e.Sink, e.Status.Label(), e.Err)
}

func (e *MirrorError) Unwrap() error {
	return e.Err
}

// AlertText is the operator message asking for manual reconciliation.
func (e *MirrorError) AlertText() string {
	return fmt.Sprintf("Заказ #%d: статус «%s» сохранён, но сообщение (%s) не обновлено: %v. Обновите вручную",
		e.DisplayID, e.Status.Label(), e.Sink, e.Err)
}

// HandleSaver records the operations channel message of an order.
type HandleSaver interface {
	SetOrderMessage(ctx context.Context, orderID, handle int64) error
}

// ChannelProjection keeps the operations channel message of an order in sync.
// An order without a stored message gets a fresh one.
type ChannelProjection struct {
	surface notify.Surface
	chatID  int64
	handles HandleSaver
}

// NewChannelProjection returns a projection editing messages in chatID.
func NewChannelProjection(surface notify.Surface, chatID int64, handles HandleSaver) *ChannelProjection {
	return &ChannelProjection{surface: surface, chatID: chatID, handles: handles}
}

func (p *ChannelProjection) Name() string { return "channel" }

func (p *ChannelProjection) Project(ctx context.Context, ev Event) error {
	text := ChannelText(ev.View)
	if h := ev.View.Order.MessageHandle; h != 0 {
		return p.surface.Edit(ctx, p.chatID, notify.MessageHandle(h), text)
	}
	h, err := p.surface.Send(ctx, p.chatID, text)
	if err != nil {
		return err
	}
	return p.handles.SetOrderMessage(ctx, ev.View.Order.ID, int64(h))
}

// BuyerProjection notifies the buyer about a status change.
type BuyerProjection struct {
	surface notify.Surface
}

// NewBuyerProjection returns a projection writing to the buyer's chat.
func NewBuyerProjection(surface notify.Surface) *BuyerProjection {
	return &BuyerProjection{surface: surface}
}

func (p *BuyerProjection) Name() string { return "buyer" }

func (p *BuyerProjection) Project(ctx context.Context, ev Event) error {
	if ev.From == ev.To {
		return nil
	}
	_, err := p.surface.Send(ctx, ev.View.Order.UserID, StatusNotice(ev.View.DisplayID, ev.To))
	return err
}
