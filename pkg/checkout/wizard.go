// Package checkout keeps the per-user order draft while a buyer walks through
// the checkout steps.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nikixstore/storefront/pkg/orders"
	"github.com/nikixstore/storefront/pkg/runtime"
	"github.com/redis/go-redis/v9"
)

// Step is a checkout stage.
type Step string

const (
	StepDelivery Step = "delivery"
	StepAddress  Step = "address"
	StepFitting  Step = "fitting"
	StepPayment  Step = "payment"
	StepName     Step = "name"
	StepPhone    Step = "phone"
	StepComment  Step = "comment"
	StepConfirm  Step = "confirm"
)

// DefaultTTL bounds how long an abandoned draft survives.
const DefaultTTL = 24 * time.Hour

var (
	// ErrNoDraft is returned when the buyer has no checkout in progress,
	// for example after the draft expired.
	ErrNoDraft = errors.New("no checkout in progress")
	// ErrStepOrder is returned when input arrives for a step the draft is not on.
	ErrStepOrder = errors.New("checkout step out of order")
)

// Draft is the state of one buyer's checkout.
type Draft struct {
	UserID int64 `json:"user_id"`
	Step   Step  `json:"step"`
	// FromBasket is false for a single product bought from its card.
	FromBasket bool   `json:"from_basket"`
	Article    string `json:"article,omitempty"`
	Size       string `json:"size,omitempty"`
	// Units is the number of pairs being ordered.
	Units    int             `json:"units"`
	BackMode string          `json:"back_mode"`
	Delivery orders.Delivery `json:"delivery"`
}

// Origin says where an order starts from.
type Origin struct {
	FromBasket bool
	Article    string
	Size       string
	Units      int
}

// BasketOrigin starts a checkout over the whole basket.
func BasketOrigin(units int) Origin {
	return Origin{FromBasket: true, Units: units}
}

// ProductOrigin starts a checkout for one product in one size.
func ProductOrigin(article, size string) Origin {
	return Origin{Article: article, Size: size, Units: 1}
}

// Wizard stores drafts in Redis under checkout:{user}.
type Wizard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewWizard returns a wizard whose drafts expire after ttl.
func NewWizard(rdb *redis.Client, ttl time.Duration) *Wizard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Wizard{rdb: rdb, ttl: ttl}
}

func draftKey(userID int64) string {
	return "checkout:" + strconv.FormatInt(userID, 10)
}

// Start begins a new checkout, replacing any draft in progress.
func (w *Wizard) Start(ctx context.Context, userID int64, origin Origin, backMode string) (*Draft, error) {
	if !origin.FromBasket && (origin.Article == "" || origin.Size == "") {
		return nil, &runtime.ValidationError{Field: "size", Message: "choose a size first"}
	}
	if origin.Units < 1 {
		return nil, &runtime.ValidationError{Field: "items", Message: "nothing to order"}
	}
	d := &Draft{
		UserID:     userID,
		Step:       StepDelivery,
		FromBasket: origin.FromBasket,
		Article:    origin.Article,
		Size:       origin.Size,
		Units:      origin.Units,
		BackMode:   backMode,
	}
	return d, w.save(ctx, d)
}

// Get returns the draft in progress.
func (w *Wizard) Get(ctx context.Context, userID int64) (*Draft, error) {
	raw, err := w.rdb.Get(ctx, draftKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoDraft
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

// Cancel drops the draft.
func (w *Wizard) Cancel(ctx context.Context, userID int64) error {
	return w.rdb.Del(ctx, draftKey(userID)).Err()
}

// SetDelivery records the delivery method.
func (w *Wizard) SetDelivery(ctx context.Context, userID int64, method string) (*Draft, error) {
	return w.advance(ctx, userID, StepDelivery, func(d *Draft) error {
		m, err := orders.ParseMethod(method)
		if err != nil {
			return &runtime.ValidationError{Field: "delivery", Message: err.Error()}
		}
		d.Delivery.Method = m
		return nil
	})
}

// SetAddress records the address.
func (w *Wizard) SetAddress(ctx context.Context, userID int64, address string) (*Draft, error) {
	return w.advance(ctx, userID, StepAddress, func(d *Draft) error {
		address = strings.TrimSpace(address)
		if address == "" {
			return &runtime.ValidationError{Field: "address", Message: "address is required"}
		}
		d.Delivery.Address = address
		return nil
	})
}

// SetFitting records whether the buyer wants to try the shoes on.
func (w *Wizard) SetFitting(ctx context.Context, userID int64, wanted bool) (*Draft, error) {
	return w.advance(ctx, userID, StepFitting, func(d *Draft) error {
		d.Delivery.Fitting = orders.FittingDeclined
		if wanted {
			d.Delivery.Fitting = orders.FittingWanted
		}
		return nil
	})
}

// SetPayment records when the buyer pays.
func (w *Wizard) SetPayment(ctx context.Context, userID int64, payment orders.Payment) (*Draft, error) {
	return w.advance(ctx, userID, StepPayment, func(d *Draft) error {
		switch payment {
		case orders.PayNow:
		case orders.PayOnDelivery:
			if d.FromBasket && d.Units > orders.MaxPayOnDeliveryUnits {
				return &runtime.ValidationError{
					Field:   "payment",
					Message: fmt.Sprintf("pay on delivery allows at most %d pairs", orders.MaxPayOnDeliveryUnits),
				}
			}
		default:
			return &runtime.ValidationError{Field: "payment", Message: "choose a payment option"}
		}
		d.Delivery.Payment = payment
		return nil
	})
}

// SetName records the recipient's full name.
func (w *Wizard) SetName(ctx context.Context, userID int64, name string) (*Draft, error) {
	return w.advance(ctx, userID, StepName, func(d *Draft) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return &runtime.ValidationError{Field: "full_name", Message: "full name is required"}
		}
		d.Delivery.FullName = name
		return nil
	})
}

// SetPhone records the contact phone.
func (w *Wizard) SetPhone(ctx context.Context, userID int64, phone string) (*Draft, error) {
	return w.advance(ctx, userID, StepPhone, func(d *Draft) error {
		if !orders.ValidPhone(phone) {
			return &runtime.ValidationError{Field: "phone", Message: "phone must contain 10 to 15 digits"}
		}
		d.Delivery.Phone = strings.TrimSpace(phone)
		return nil
	})
}

// SetComment records the order comment. An empty comment skips the step.
func (w *Wizard) SetComment(ctx context.Context, userID int64, comment string) (*Draft, error) {
	return w.advance(ctx, userID, StepComment, func(d *Draft) error {
		d.Delivery.Comment = strings.TrimSpace(comment)
		return nil
	})
}

// Ready returns a draft that reached confirmation, normalized for placing.
func (w *Wizard) Ready(ctx context.Context, userID int64) (*Draft, error) {
	d, err := w.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d.Step != StepConfirm {
		return nil, fmt.Errorf("%w: at %s, want %s", ErrStepOrder, d.Step, StepConfirm)
	}
	d.Delivery = d.Delivery.Normalize()
	return d, nil
}

func (w *Wizard) advance(ctx context.Context, userID int64, at Step, apply func(*Draft) error) (*Draft, error) {
	d, err := w.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d.Step != at {
		return nil, fmt.Errorf("%w: at %s, got input for %s", ErrStepOrder, d.Step, at)
	}
	if err := apply(d); err != nil {
		return nil, err
	}
	d.Step = next(d)
	return d, w.save(ctx, d)
}

// next picks the step after the current one. Lockers skip fitting and post
// skips both fitting and payment.
func next(d *Draft) Step {
	switch d.Step {
	case StepDelivery:
		return StepAddress
	case StepAddress:
		switch {
		case d.Delivery.Method.OffersFitting():
			return StepFitting
		case d.Delivery.Method.OffersPayOnDelivery():
			return StepPayment
		default:
			d.Delivery.Payment = orders.PayNow
			return StepName
		}
	case StepFitting:
		return StepPayment
	case StepPayment:
		return StepName
	case StepName:
		return StepPhone
	case StepPhone:
		return StepComment
	}
	return StepConfirm
}

func (w *Wizard) save(ctx context.Context, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := w.rdb.Set(ctx, draftKey(d.UserID), raw, w.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}
