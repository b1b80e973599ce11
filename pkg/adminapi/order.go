package adminapi

import (
	"time"

	"github.com/nikixstore/storefront/pkg/orders"
)

type orderItem struct {
	Name    string `json:"name"`
	Article string `json:"article"`
	Size    string `json:"size"`
	Price   int    `json:"price"`
}

type orderResponse struct {
	ID            int64       `json:"id"`
	Status        int         `json:"status"`
	StatusLabel   string      `json:"status_label"`
	UserID        int64       `json:"user_id"`
	UserName      string      `json:"user_name,omitempty"`
	FullName      string      `json:"full_name"`
	Phone         string      `json:"phone"`
	Address       string      `json:"address"`
	Method        string      `json:"delivery_method"`
	Fitting       string      `json:"fitting"`
	Payment       string      `json:"payment"`
	Comment       string      `json:"comment"`
	DeliveryPrice int         `json:"delivery_price"`
	ItemsTotal    int         `json:"items_total"`
	Total         int         `json:"total"`
	Items         []orderItem `json:"items"`
	CreatedAt     time.Time   `json:"created_at"`
}

func newOrderResponse(v *orders.View) orderResponse {
	o := v.Order
	r := orderResponse{
		ID:            v.DisplayID,
		Status:        o.Status,
		StatusLabel:   v.Status().Label(),
		UserID:        o.UserID,
		FullName:      o.FullName,
		Phone:         o.Phone,
		Address:       o.Address,
		Method:        o.DeliveryMethod,
		Fitting:       o.Fitting,
		Payment:       o.PayWay,
		Comment:       o.Comment,
		DeliveryPrice: o.DeliveryPrice,
		ItemsTotal:    v.ItemsTotal(),
		Total:         v.Total(),
		Items:         make([]orderItem, len(v.Items)),
		CreatedAt:     o.CreatedAt,
	}
	if v.Client != nil {
		r.UserName = v.Client.UserName
	}
	for i, it := range v.Items {
		r.Items[i] = orderItem{Name: it.Name, Article: it.Article, Size: it.Size, Price: it.Price}
	}
	return r
}
