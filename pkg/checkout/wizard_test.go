package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nikixstore/storefront/pkg/orders"
	"github.com/nikixstore/storefront/pkg/runtime"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWizard(t *testing.T) (*Wizard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewWizard(rdb, time.Hour), mr
}

func TestCourierFlow(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWizard(t)

	d, err := w.Start(ctx, 1, BasketOrigin(2), "go_to_basket_from_menu")
	require.NoError(t, err)
	assert.Equal(t, StepDelivery, d.Step)

	steps := []func() (*Draft, error){
		func() (*Draft, error) { return w.SetDelivery(ctx, 1, string(orders.Courier)) },
		func() (*Draft, error) { return w.SetAddress(ctx, 1, " Москва, Тверская 1 ") },
		func() (*Draft, error) { return w.SetFitting(ctx, 1, true) },
		func() (*Draft, error) { return w.SetPayment(ctx, 1, orders.PayOnDelivery) },
		func() (*Draft, error) { return w.SetName(ctx, 1, "Иванова Анна") },
		func() (*Draft, error) { return w.SetPhone(ctx, 1, "+7 900 123-45-67") },
		func() (*Draft, error) { return w.SetComment(ctx, 1, "") },
	}
	want := []Step{StepAddress, StepFitting, StepPayment, StepName, StepPhone, StepComment, StepConfirm}
	for i, step := range steps {
		d, err = step()
		require.NoError(t, err)
		assert.Equal(t, want[i], d.Step)
	}

	ready, err := w.Ready(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ready.FromBasket)
	assert.Equal(t, "Москва, Тверская 1", ready.Delivery.Address)
	assert.Equal(t, orders.FittingWanted, ready.Delivery.Fitting)
	assert.Equal(t, "нет", ready.Delivery.Comment)
	assert.NoError(t, ready.Delivery.Validate(ready.Units))
}

func TestPostalSkipsFittingAndPayment(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWizard(t)
	_, err := w.Start(ctx, 2, ProductOrigin("A1", "42"), "same")
	require.NoError(t, err)

	_, err = w.SetDelivery(ctx, 2, string(orders.Postal))
	require.NoError(t, err)
	d, err := w.SetAddress(ctx, 2, "101000, Москва")
	require.NoError(t, err)
	assert.Equal(t, StepName, d.Step)
	assert.Equal(t, orders.PayNow, d.Delivery.Payment)
}

func TestLockerSkipsFitting(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWizard(t)
	_, err := w.Start(ctx, 3, BasketOrigin(1), "0")
	require.NoError(t, err)

	_, err = w.SetDelivery(ctx, 3, string(orders.Locker))
	require.NoError(t, err)
	d, err := w.SetAddress(ctx, 3, "Казань")
	require.NoError(t, err)
	assert.Equal(t, StepPayment, d.Step)
}

func TestStepValidation(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWizard(t)
	_, err := w.Start(ctx, 4, BasketOrigin(5), "0")
	require.NoError(t, err)

	_, err = w.SetAddress(ctx, 4, "somewhere")
	assert.ErrorIs(t, err, ErrStepOrder)

	_, err = w.SetDelivery(ctx, 4, "Самовывоз")
	assert.True(t, runtime.IsValidation(err))

	_, err = w.SetDelivery(ctx, 4, string(orders.Pickup))
	require.NoError(t, err)
	_, err = w.SetAddress(ctx, 4, "   ")
	assert.True(t, runtime.IsValidation(err))
	_, err = w.SetAddress(ctx, 4, "Москва")
	require.NoError(t, err)
	_, err = w.SetFitting(ctx, 4, false)
	require.NoError(t, err)

	// five pairs from the basket cannot be paid on delivery
	_, err = w.SetPayment(ctx, 4, orders.PayOnDelivery)
	assert.True(t, runtime.IsValidation(err))
	d, err := w.SetPayment(ctx, 4, orders.PayNow)
	require.NoError(t, err)
	assert.Equal(t, StepName, d.Step)

	_, err = w.SetName(ctx, 4, "Пётр")
	require.NoError(t, err)
	_, err = w.SetPhone(ctx, 4, "123")
	assert.True(t, runtime.IsValidation(err))

	_, err = w.Ready(ctx, 4)
	assert.ErrorIs(t, err, ErrStepOrder)
}

func TestStartValidation(t *testing.T) {
	w, _ := newTestWizard(t)
	_, err := w.Start(context.Background(), 1, Origin{Article: "A1"}, "same")
	assert.True(t, runtime.IsValidation(err))
	_, err = w.Start(context.Background(), 1, BasketOrigin(0), "0")
	assert.True(t, runtime.IsValidation(err))
}

func TestDraftExpiresAndCancels(t *testing.T) {
	ctx := context.Background()
	w, mr := newTestWizard(t)
	_, err := w.Start(ctx, 5, BasketOrigin(1), "0")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = w.Get(ctx, 5)
	assert.ErrorIs(t, err, ErrNoDraft)

	_, err = w.Start(ctx, 5, BasketOrigin(1), "0")
	require.NoError(t, err)
	require.NoError(t, w.Cancel(ctx, 5))
	_, err = w.SetDelivery(ctx, 5, string(orders.Pickup))
	assert.ErrorIs(t, err, ErrNoDraft)
}
