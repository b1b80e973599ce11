package orders

import (
	"fmt"
	"strings"

	"github.com/nikixstore/storefront/pkg/models"
)

const dateLayout = "02.01.2006 15:04"

// View is an order with everything needed to render it.
type View struct {
	DisplayID int64
	Order     models.Order
	Items     []models.OrderItem
	// Client is nil when the buyer's profile could not be loaded.
	Client *models.User
}

// Status returns the decoded order status.
func (v View) Status() Status {
	return Status(v.Order.Status)
}

// ItemsTotal sums the unit prices captured when the order was placed.
func (v View) ItemsTotal() int {
	total := 0
	for _, it := range v.Items {
		total += it.Price
	}
	return total
}

// Total is the items total plus the stored delivery price. It is derived on
// every render and never stored.
func (v View) Total() int {
	return v.ItemsTotal() + v.Order.DeliveryPrice
}

// BuyerText renders the order as the buyer sees it.
func BuyerText(v View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Заказ №<b>%d</b>\nСтатус: %s\n\n", v.DisplayID, v.Status().Label())
	writeDetails(&b, v.Order)
	writeItems(&b, v)
	return b.String()
}

// ChannelText renders the operations channel copy of the order.
func ChannelText(v View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 Заказ: #<b>%d</b>\nСтатус: %s\n\n", v.DisplayID, v.Status().Label())
	writeClient(&b, v)
	if !v.Order.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Дата заказа: %s\n", v.Order.CreatedAt.Format(dateLayout))
	}
	b.WriteString("\n")
	writeDetails(&b, v.Order)
	writeItems(&b, v)
	return b.String()
}

// NewOrderText renders the announcement of a freshly placed order.
func NewOrderText(v View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Новый заказ! #<b>%d</b>\nСтатус: %s\n\n", v.DisplayID, StatusPlaced.Label())
	writeClient(&b, v)
	b.WriteString("\n")
	writeDetails(&b, v.Order)
	writeItems(&b, v)
	return b.String()
}

// CancelText is the broadcast sent when an order is cancelled.
func CancelText(displayID int64) string {
	return fmt.Sprintf("Отменён заказ #%d", displayID)
}

// StatusNotice is the short message sent to the buyer on a status change.
func StatusNotice(displayID int64, s Status) string {
	return fmt.Sprintf("Статус заказа #%d изменён: %s", displayID, s.Label())
}

func writeClient(b *strings.Builder, v View) {
	if v.Client != nil {
		if v.Client.UserName != "" {
			fmt.Fprintf(b, "Клиент: @%s\n", v.Client.UserName)
		}
		if v.Client.FirstName != "" {
			fmt.Fprintf(b, "Имя: %s\n", v.Client.FirstName)
		}
	}
	fmt.Fprintf(b, "ID: %d\n", v.Order.UserID)
}

func writeDetails(b *strings.Builder, o models.Order) {
	fmt.Fprintf(b, "🚚 <b>Способ доставки:</b> %s\n", o.DeliveryMethod)
	fmt.Fprintf(b, "🏠 <b>Адрес:</b> %s\n", o.Address)
	fmt.Fprintf(b, "👟 <b>Примерка:</b> %s\n", o.Fitting)
	fmt.Fprintf(b, "💵 <b>Оплата:</b> %s\n", o.PayWay)
	fmt.Fprintf(b, "👤 <b>ФИО:</b> %s\n", o.FullName)
	fmt.Fprintf(b, "☎️ <b>Номер телефона:</b> %s\n", o.Phone)
	fmt.Fprintf(b, "💬 <b>Комментарий к заказу:</b> %s\n\n", o.Comment)
}

func writeItems(b *strings.Builder, v View) {
	for i, it := range v.Items {
		if it.ChannelURL != "" && it.ChannelURL != "0" {
			fmt.Fprintf(b, "<b>%d.</b> <a href='%s'><b>%s</b></a>\n", i+1, it.ChannelURL, it.Name)
		} else {
			fmt.Fprintf(b, "<b>%d.</b> <b>%s</b>\n", i+1, it.Name)
		}
		fmt.Fprintf(b, "<b>Артикул:</b> %s\n", it.Article)
		fmt.Fprintf(b, "<b>Размер:</b> %s (EU)\n", it.Size)
		fmt.Fprintf(b, "<b>Стоимость:</b> %s ₽\n\n", models.FormatRub(it.Price))
	}
	fmt.Fprintf(b, "<b>Доставка:</b> %s\n", deliveryLabel(v.Order.DeliveryPrice))
	fmt.Fprintf(b, "<b>Всего:</b> %s ₽", models.FormatRub(v.Total()))
}

func deliveryLabel(price int) string {
	if price == 0 {
		return "бесплатно"
	}
	return models.FormatRub(price) + " ₽"
}
