package orders

import (
	"testing"

	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryPrice(t *testing.T) {
	tests := []struct {
		method Method
		pay    Payment
		units  int
		want   int
	}{
		{Pickup, PayOnDelivery, 1, 300},
		{Pickup, PayNow, 3, 0},
		{Locker, PayOnDelivery, 2, 300},
		{Locker, PayNow, 1, 0},
		{Courier, PayOnDelivery, 1, 500},
		{Courier, PayOnDelivery, 3, 900},
		{Courier, PayNow, 4, 200},
		{Postal, PayOnDelivery, 1, 0},
		{Postal, PayNow, 2, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.method)+"/"+string(tt.pay), func(t *testing.T) {
			got, err := DeliveryPrice(tt.method, tt.pay, tt.units)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DeliveryPrice("Самовывоз", PayNow, 1)
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestNormalizeForcedChoices(t *testing.T) {
	locker := Delivery{Method: Locker, Fitting: FittingWanted, Payment: PayOnDelivery}.Normalize()
	assert.Equal(t, "не доступна при заказе в постамат", locker.Fitting)
	assert.Equal(t, PayOnDelivery, locker.Payment)
	assert.Equal(t, "нет", locker.Comment)

	postal := Delivery{Method: Postal, Payment: PayOnDelivery, Comment: " позвонить "}.Normalize()
	assert.Equal(t, "не доступна при заказе Почтой России", postal.Fitting)
	assert.Equal(t, PayNow, postal.Payment)
	assert.Equal(t, "сразу, так как отправка Почтой", postal.PaymentLabel())
	assert.Equal(t, "позвонить", postal.Comment)
}

func TestDeliveryValidate(t *testing.T) {
	valid := courierDelivery().Normalize()
	require.NoError(t, valid.Validate(1))

	tooMany := valid
	assert.True(t, runtime.IsValidation(tooMany.Validate(MaxPayOnDeliveryUnits+1)))
	tooMany.Payment = PayNow
	assert.NoError(t, tooMany.Validate(MaxPayOnDeliveryUnits+1))

	noFitting := valid
	noFitting.Fitting = ""
	assert.True(t, runtime.IsValidation(noFitting.Validate(1)))

	noAddress := valid
	noAddress.Address = ""
	assert.True(t, runtime.IsValidation(noAddress.Validate(1)))

	locker := Delivery{Method: Locker, Address: "a", Payment: PayNow, FullName: "n", Phone: "89001234567"}.Normalize()
	assert.NoError(t, locker.Validate(1))
}

func TestValidPhone(t *testing.T) {
	for _, ok := range []string{"+7 900 123-45-67", "89001234567", "+7 (900) 123 45 67"} {
		assert.True(t, ValidPhone(ok), ok)
	}
	for _, bad := range []string{"", "12345", "телефон", "+7 900 123 45 67 ext 1", "1234567890123456"} {
		assert.False(t, ValidPhone(bad), bad)
	}
}

func TestStatusLabels(t *testing.T) {
	labels := make([]string, 0, 5)
	for _, s := range Statuses() {
		labels = append(labels, s.Label())
	}
	assert.Equal(t, []string{"📝 Оформлен", "🚚 В пути", "🕘 Ожидает получения", "✅ Получен", "❌ Отменён"}, labels)
	assert.Equal(t, "Неизвестен", Status(7).Label())

	_, err := ParseStatus(5)
	assert.ErrorIs(t, err, ErrUnknownStatus)
	s, err := ParseStatus(2)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingPickup, s)
}

func TestForwardOnly(t *testing.T) {
	assert.NoError(t, ForwardOnly(StatusPlaced, StatusInTransit))
	assert.NoError(t, ForwardOnly(StatusPlaced, StatusCancelled))
	assert.NoError(t, ForwardOnly(StatusReceived, StatusReceived))
	assert.ErrorIs(t, ForwardOnly(StatusInTransit, StatusPlaced), ErrTransition)
	assert.ErrorIs(t, ForwardOnly(StatusCancelled, StatusInTransit), ErrTransition)
	assert.ErrorIs(t, ForwardOnly(StatusReceived, StatusCancelled), ErrTransition)
	assert.NoError(t, AnyTransition(StatusCancelled, StatusPlaced))
}

func TestQuote(t *testing.T) {
	items := []LineItem{
		{Product: models.Product{Price: 1000}},
		{Product: models.Product{Price: 1000, DropPrice: 800, IsDrop: 1}},
	}
	delivery, total, err := Quote(items, Delivery{Method: Courier, Payment: PayOnDelivery})
	require.NoError(t, err)
	assert.Equal(t, 700, delivery)
	assert.Equal(t, 2500, total)
}

func TestChannelTextWithoutLink(t *testing.T) {
	v := View{
		DisplayID: 2003,
		Order:     models.Order{UserID: 5, Status: int(StatusReceived), DeliveryPrice: 0},
		Items:     []models.OrderItem{{Name: "Air", Article: "A1", Size: "42", Price: 12500, ChannelURL: "0"}},
	}
	text := ChannelText(v)
	assert.Contains(t, text, "Статус: ✅ Получен")
	assert.Contains(t, text, "<b>1.</b> <b>Air</b>")
	assert.Contains(t, text, "<b>Стоимость:</b> 12 500 ₽")
	assert.Contains(t, text, "<b>Доставка:</b> бесплатно")
	assert.NotContains(t, text, "Клиент:")
}
