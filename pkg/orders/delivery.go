package orders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nikixstore/storefront/pkg/runtime"
)

// Method is a delivery method. The value is what the buyer and the
// operations channel read.
type Method string

const (
	Pickup  Method = "Пункт выдачи СДЕК"
	Courier Method = "Курьерская доставка СДЕК"
	Locker  Method = "Постамат СДЕК"
	Postal  Method = "Почта России"
)

// Payment is when the buyer pays.
type Payment string

const (
	PayNow        Payment = "сразу"
	PayOnDelivery Payment = "при получении"
)

// Fitting labels.
const (
	FittingWanted   = "нужна"
	FittingDeclined = "не нужна"
	fittingLocker   = "не доступна при заказе в постамат"
	fittingPostal   = "не доступна при заказе Почтой России"
	payNowPostal    = "сразу, так как отправка Почтой"
)

// MaxPayOnDeliveryUnits caps basket orders paid on delivery.
const MaxPayOnDeliveryUnits = 3

// ErrUnknownMethod is returned for a delivery method outside the table.
var ErrUnknownMethod = errors.New("unknown delivery method")

// Methods lists the delivery methods in menu order.
func Methods() []Method {
	return []Method{Pickup, Locker, Courier, Postal}
}

// ParseMethod returns the Method named s.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods() {
		if string(m) == strings.TrimSpace(s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// OffersFitting reports whether the buyer may ask to try shoes on.
func (m Method) OffersFitting() bool {
	return m == Pickup || m == Courier
}

// OffersPayOnDelivery reports whether payment on delivery is possible.
func (m Method) OffersPayOnDelivery() bool {
	return m != Postal
}

// DeliveryPrice looks up the delivery charge for units items.
//
//	method   on delivery            paid now
//	pickup   300                    0
//	courier  500 + 200 per extra    200
//	locker   300                    0
//	postal   always paid now        0
func DeliveryPrice(m Method, p Payment, units int) (int, error) {
	if units < 1 {
		units = 1
	}
	payNow := p == PayNow || !m.OffersPayOnDelivery()
	switch m {
	case Pickup, Locker:
		if payNow {
			return 0, nil
		}
		return 300, nil
	case Courier:
		if payNow {
			return 200, nil
		}
		return 500 + 200*(units-1), nil
	case Postal:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
}

// Delivery is what the checkout wizard collected from the buyer.
type Delivery struct {
	Method   Method
	Address  string
	Fitting  string
	Payment  Payment
	FullName string
	Phone    string
	Comment  string
}

// Normalize applies the forced choices of each method: lockers and post
// offer no fitting, and post is always paid upfront.
func (d Delivery) Normalize() Delivery {
	d.Address = strings.TrimSpace(d.Address)
	d.FullName = strings.TrimSpace(d.FullName)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Comment = strings.TrimSpace(d.Comment)
	if d.Comment == "" {
		d.Comment = "нет"
	}
	switch d.Method {
	case Locker:
		d.Fitting = fittingLocker
	case Postal:
		d.Fitting = fittingPostal
		d.Payment = PayNow
	}
	return d
}

// PaymentLabel is the payment text shown on the order.
func (d Delivery) PaymentLabel() string {
	if d.Method == Postal {
		return payNowPostal
	}
	return string(d.Payment)
}

// Validate checks a normalized delivery for an order of units items.
func (d Delivery) Validate(units int) error {
	if _, err := ParseMethod(string(d.Method)); err != nil {
		return &runtime.ValidationError{Field: "delivery", Message: err.Error()}
	}
	if d.Address == "" {
		return &runtime.ValidationError{Field: "address", Message: "address is required"}
	}
	if d.Method.OffersFitting() && d.Fitting != FittingWanted && d.Fitting != FittingDeclined {
		return &runtime.ValidationError{Field: "fitting", Message: "choose whether fitting is needed"}
	}
	if d.Payment != PayNow && d.Payment != PayOnDelivery {
		return &runtime.ValidationError{Field: "payment", Message: "choose a payment option"}
	}
	if d.Payment == PayOnDelivery && units > MaxPayOnDeliveryUnits {
		return &runtime.ValidationError{
			Field:   "payment",
			Message: fmt.Sprintf("pay on delivery allows at most %d pairs", MaxPayOnDeliveryUnits),
		}
	}
	if d.FullName == "" {
		return &runtime.ValidationError{Field: "full_name", Message: "full name is required"}
	}
	if !ValidPhone(d.Phone) {
		return &runtime.ValidationError{Field: "phone", Message: "phone must contain 10 to 15 digits"}
	}
	return nil
}

// ValidPhone accepts 10 to 15 digits with an optional leading plus and the
// usual separators.
func ValidPhone(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 10 && digits <= 15
}
