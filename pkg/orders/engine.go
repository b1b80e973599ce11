package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/notify"
	"github.com/nikixstore/storefront/pkg/runtime"
)

// DefaultIDOffset is added to internal ids before they are shown to anyone.
const DefaultIDOffset = 2000

// Store is the persistence the engine needs.
type Store interface {
	InsertOrder(ctx context.Context, order models.Order, items []models.OrderItem, clearBasket bool) (int64, error)
	SetOrderStatus(ctx context.Context, orderID int64, status int) error
	SetOrderMessage(ctx context.Context, orderID, handle int64) error
	Order(ctx context.Context, orderID int64) (*models.Order, error)
	OrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	OrdersByUser(ctx context.Context, userID int64) ([]models.Order, error)
	User(ctx context.Context, userID int64) (*models.User, error)
}

// Config carries the engine's identities and policies.
type Config struct {
	AdminID      int64
	OrdersChatID int64
	IDOffset     int64
	// Transition vets status changes. Nil allows every change.
	Transition TransitionFunc
	// RetryInterval is the first pause between projection attempts.
	RetryInterval time.Duration
}

// Engine places orders and drives their status.
type Engine struct {
	store   Store
	channel notify.Surface
	alert   notify.Alerter
	cfg     Config
	sinks   []Sink
	log     *slog.Logger
}

// NewEngine wires the engine. channel carries the operations chat and buyer
// the buyers' chats; both may be the same surface.
func NewEngine(store Store, channel, buyer notify.Surface, alert notify.Alerter, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if cfg.IDOffset == 0 {
		cfg.IDOffset = DefaultIDOffset
	}
	if cfg.Transition == nil {
		cfg.Transition = AnyTransition
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	return &Engine{
		store:   store,
		channel: channel,
		alert:   alert,
		cfg:     cfg,
		sinks: []Sink{
			{Projection: NewChannelProjection(channel, cfg.OrdersChatID, store), Retries: 2, Alert: true},
			{Projection: NewBuyerProjection(buyer)},
		},
		log: log,
	}
}

// DisplayID converts an internal id into the number people see.
func (e *Engine) DisplayID(orderID int64) int64 {
	return orderID + e.cfg.IDOffset
}

// InternalID converts a displayed number back into the internal id.
func (e *Engine) InternalID(displayID int64) (int64, error) {
	id := displayID - e.cfg.IDOffset
	if id <= 0 {
		return 0, &runtime.ValidationError{Field: "order", Message: fmt.Sprintf("no order #%d", displayID)}
	}
	return id, nil
}

// LineItem is one unit being bought.
type LineItem struct {
	Product models.Product
	Size    string
}

// Placement describes a stored order.
type Placement struct {
	OrderID       int64
	DisplayID     int64
	DeliveryPrice int
	Total         int
	// Announced is false when the operations channel never got the order.
	Announced bool
}

// Quote computes the delivery price and total for items without storing
// anything.
func Quote(items []LineItem, d Delivery) (delivery, total int, err error) {
	d = d.Normalize()
	delivery, err = DeliveryPrice(d.Method, d.Payment, len(items))
	if err != nil {
		return 0, 0, err
	}
	total = delivery
	for _, it := range items {
		total += it.Product.UnitPrice()
	}
	return delivery, total, nil
}

// PlaceOrder stores an order for userID and announces it to the operations
// channel. fromBasket clears the buyer's basket in the same transaction.
func (e *Engine) PlaceOrder(ctx context.Context, userID int64, items []LineItem, d Delivery, fromBasket bool) (*Placement, error) {
	if len(items) == 0 {
		return nil, &runtime.ValidationError{Field: "items", Message: "nothing to order"}
	}
	d = d.Normalize()
	if err := d.Validate(len(items)); err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.Product.UnitPrice() == 0 {
			e.alert.Alert(ctx, fmt.Sprintf("Не указана цена на %s, артикул: %s", it.Product.Name, it.Product.Article))
			return nil, &runtime.ValidationError{Field: "price", Message: "price is not set for " + it.Product.Article}
		}
		if it.Size == "" {
			return nil, &runtime.ValidationError{Field: "size", Message: "size is required for " + it.Product.Article}
		}
	}
	deliveryPrice, err := DeliveryPrice(d.Method, d.Payment, len(items))
	if err != nil {
		return nil, err
	}

	order := models.Order{
		UserID:         userID,
		FullName:       d.FullName,
		Phone:          d.Phone,
		Address:        d.Address,
		DeliveryMethod: string(d.Method),
		Fitting:        d.Fitting,
		PayWay:         d.PaymentLabel(),
		Status:         int(StatusPlaced),
		Comment:        d.Comment,
		DeliveryPrice:  deliveryPrice,
	}
	snapshot := make([]models.OrderItem, len(items))
	for i, it := range items {
		snapshot[i] = models.OrderItem{
			Name:       it.Product.Name,
			Article:    it.Product.Article,
			Size:       it.Size,
			Price:      it.Product.UnitPrice(),
			ChannelURL: it.Product.ChannelURL,
		}
	}

	id, err := e.store.InsertOrder(ctx, order, snapshot, fromBasket)
	if err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}
	order.ID = id
	view := View{DisplayID: e.DisplayID(id), Order: order, Items: snapshot, Client: e.client(ctx, userID)}
	placed := &Placement{OrderID: id, DisplayID: view.DisplayID, DeliveryPrice: deliveryPrice, Total: view.Total()}

	e.log.InfoContext(ctx, "order placed", "order_id", view.DisplayID, "user_id", userID,
		"items", len(items), "total", placed.Total, "from_basket", fromBasket)

	handle, err := e.channel.Send(ctx, e.cfg.OrdersChatID, NewOrderText(view))
	if err == nil {
		err = e.store.SetOrderMessage(ctx, id, int64(handle))
	}
	if err != nil {
		e.alert.Alert(ctx, fmt.Sprintf("Ошибка создания заказа %d: %v, изменения статуса не будут видны", view.DisplayID, err))
		return placed, nil
	}
	placed.Announced = true
	return placed, nil
}

// StatusChange reports the outcome of SetStatus. The status is stored even
// when Mirrors is not empty.
type StatusChange struct {
	DisplayID int64
	From      Status
	To        Status
	Mirrors   []*MirrorError
}

// SetStatus stores a new status and then projects it to every sink. A
// projection failure never rolls the stored status back.
func (e *Engine) SetStatus(ctx context.Context, orderID int64, to Status) (*StatusChange, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int(to))
	}
	order, err := e.store.Order(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", e.DisplayID(orderID), err)
	}
	from := Status(order.Status)
	if err := e.cfg.Transition(from, to); err != nil {
		return nil, err
	}

	display := e.DisplayID(orderID)
	if err := e.store.SetOrderStatus(ctx, orderID, int(to)); err != nil {
		e.alert.Alert(ctx, fmt.Sprintf("Ошибка, статус заказа #%d не установлен: %v", display, err))
		return nil, fmt.Errorf("store status: %w", err)
	}
	order.Status = int(to)
	e.log.InfoContext(ctx, "order status changed", "order_id", display, "from", int(from), "to", int(to))

	if to == StatusCancelled {
		e.broadcastCancel(ctx, display)
	}

	items, err := e.store.OrderItems(ctx, orderID)
	if err != nil {
		e.log.WarnContext(ctx, "order items unavailable for mirror", "order_id", display, "error", err)
	}
	ev := Event{
		View: View{DisplayID: display, Order: *order, Items: items, Client: e.client(ctx, order.UserID)},
		From: from,
		To:   to,
	}
	change := &StatusChange{DisplayID: display, From: from, To: to}
	for _, sink := range e.sinks {
		if err := e.project(ctx, sink, ev); err != nil {
			merr := &MirrorError{DisplayID: display, Sink: sink.Projection.Name(), Status: to, Err: err}
			if sink.Alert {
				e.alert.Alert(ctx, merr.AlertText())
				change.Mirrors = append(change.Mirrors, merr)
			}
			e.log.WarnContext(ctx, "order mirror failed", "order_id", display, "sink", merr.Sink, "error", err)
		}
	}
	return change, nil
}

func (e *Engine) project(ctx context.Context, sink Sink, ev Event) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.RetryInterval
	b.MaxElapsedTime = 0
	return backoff.Retry(func() error {
		return sink.Projection.Project(ctx, ev)
	}, backoff.WithContext(backoff.WithMaxRetries(b, sink.Retries), ctx))
}

// broadcastCancel tells the administrator and the operations channel. Either
// send may fail on its own.
func (e *Engine) broadcastCancel(ctx context.Context, displayID int64) {
	text := CancelText(displayID)
	for _, chat := range []int64{e.cfg.AdminID, e.cfg.OrdersChatID} {
		if chat == 0 {
			continue
		}
		if _, err := e.channel.Send(ctx, chat, text); err != nil {
			e.log.WarnContext(ctx, "cancel broadcast failed", "order_id", displayID, "chat_id", chat, "error", err)
		}
	}
}

// ShowOrder loads an order for viewerID. Buyers only see their own orders;
// the administrator sees all of them.
func (e *Engine) ShowOrder(ctx context.Context, orderID, viewerID int64) (*View, error) {
	order, err := e.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if viewerID != e.cfg.AdminID && order.UserID != viewerID {
		return nil, runtime.ErrNotFound
	}
	items, err := e.store.OrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	return &View{DisplayID: e.DisplayID(orderID), Order: *order, Items: items, Client: e.client(ctx, order.UserID)}, nil
}

// Orders returns a buyer's orders, newest first.
func (e *Engine) Orders(ctx context.Context, userID int64) ([]models.Order, error) {
	return e.store.OrdersByUser(ctx, userID)
}

// Cancel lets a buyer cancel their own order while it is still placed.
func (e *Engine) Cancel(ctx context.Context, orderID, userID int64) (*StatusChange, error) {
	view, err := e.ShowOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if view.Order.UserID != userID {
		return nil, runtime.ErrNotFound
	}
	if !view.Status().Cancellable() {
		return nil, &runtime.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("order #%d is %s and can no longer be cancelled", view.DisplayID, view.Status().Label()),
		}
	}
	return e.SetStatus(ctx, orderID, StatusCancelled)
}

func (e *Engine) client(ctx context.Context, userID int64) *models.User {
	u, err := e.store.User(ctx, userID)
	if err != nil {
		if !errors.Is(err, runtime.ErrNotFound) {
			e.log.WarnContext(ctx, "client profile unavailable", "user_id", userID, "error", err)
		}
		return nil
	}
	return u
}
