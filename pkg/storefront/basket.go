package storefront

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikixstore/storefront/pkg/checkout"
	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/orders"
	"github.com/nikixstore/storefront/pkg/runtime"
	"github.com/nikixstore/storefront/pkg/session"
)

// BasketView is a buyer's basket with its running total.
type BasketView struct {
	Lines []models.BasketLine
	Total int
}

// Units returns the number of pairs in the basket.
func (b BasketView) Units() int {
	return len(b.Lines)
}

// AddToBasket puts one pair of article in size into the buyer's basket and
// returns the new unit count. The size must be in stock.
func (s *Service) AddToBasket(ctx context.Context, userID int64, article, size string) (int64, error) {
	product, err := s.purchasable(ctx, userID, article, size)
	if err != nil {
		return 0, err
	}
	if _, err := s.store.AddToBasket(ctx, userID, product.Article, size); err != nil {
		return 0, fmt.Errorf("add to basket: %w", err)
	}
	s.log.InfoContext(ctx, "added to basket", "user_id", userID, "article", article, "size", size)
	return s.store.BasketCount(ctx, userID)
}

// Basket returns the buyer's basket.
func (s *Service) Basket(ctx context.Context, userID int64) (*BasketView, error) {
	lines, err := s.store.Basket(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load basket: %w", err)
	}
	v := &BasketView{Lines: lines}
	for _, l := range lines {
		v.Total += l.Product().UnitPrice()
	}
	return v, nil
}

// RemoveFromBasket removes one basket line.
func (s *Service) RemoveFromBasket(ctx context.Context, userID, basketID int64) error {
	ok, err := s.store.RemoveBasketItem(ctx, userID, basketID)
	if err != nil {
		return fmt.Errorf("remove basket item: %w", err)
	}
	if !ok {
		return runtime.ErrNotFound
	}
	return nil
}

// ClearBasket empties the buyer's basket.
func (s *Service) ClearBasket(ctx context.Context, userID int64) error {
	return s.store.ClearBasket(ctx, userID)
}

// ValidateBasket drops every basket line whose size is no longer in stock
// and returns the dropped lines.
func (s *Service) ValidateBasket(ctx context.Context, userID int64) ([]models.BasketLine, error) {
	lines, err := s.store.Basket(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load basket: %w", err)
	}
	var removed []models.BasketLine
	for _, l := range lines {
		if s.sizes.Has(l.Article, l.Size) {
			continue
		}
		if _, err := s.store.RemoveBasketItem(ctx, userID, l.BasketID); err != nil {
			return removed, fmt.Errorf("remove %s/%s: %w", l.Article, l.Size, err)
		}
		removed = append(removed, l)
	}
	if len(removed) > 0 {
		s.log.InfoContext(ctx, "basket lines out of stock removed", "user_id", userID, "removed", len(removed))
	}
	return removed, nil
}

// UnlockDrop checks the drop password for a buyer.
func (s *Service) UnlockDrop(ctx context.Context, userID int64, password string) (bool, error) {
	return s.gate.Unlock(ctx, userID, password)
}

// BeginBasketCheckout validates the basket and starts a checkout over it.
func (s *Service) BeginBasketCheckout(ctx context.Context, userID int64) (*checkout.Draft, []models.BasketLine, error) {
	removed, err := s.ValidateBasket(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	n, err := s.store.BasketCount(ctx, userID)
	if err != nil {
		return nil, removed, fmt.Errorf("count basket: %w", err)
	}
	back, _ := s.Back(ctx, userID)
	d, err := s.wizard.Start(ctx, userID, checkout.BasketOrigin(int(n)), back)
	return d, removed, err
}

// BeginProductCheckout starts a checkout for one pair bought from its card.
func (s *Service) BeginProductCheckout(ctx context.Context, userID int64, article, size string) (*checkout.Draft, error) {
	if _, err := s.purchasable(ctx, userID, article, size); err != nil {
		return nil, err
	}
	return s.wizard.Start(ctx, userID, checkout.ProductOrigin(article, size), session.BackSame)
}

// Quote prices the draft at the confirmation step.
func (s *Service) Quote(ctx context.Context, userID int64) (delivery, total int, err error) {
	d, err := s.wizard.Ready(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	items, err := s.lineItems(ctx, d)
	if err != nil {
		return 0, 0, err
	}
	return orders.Quote(items, d.Delivery)
}

// ConfirmCheckout places the order described by the buyer's finished draft.
func (s *Service) ConfirmCheckout(ctx context.Context, userID int64) (*orders.Placement, error) {
	d, err := s.wizard.Ready(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.lineItems(ctx, d)
	if err != nil {
		return nil, err
	}
	placed, err := s.engine.PlaceOrder(ctx, userID, items, d.Delivery, d.FromBasket)
	if err != nil {
		return nil, err
	}
	if err := s.wizard.Cancel(ctx, userID); err != nil {
		s.log.WarnContext(ctx, "checkout draft not cleared", "user_id", userID, "error", err)
	}
	return placed, nil
}

// OrderSummary is one line of a buyer's order list.
type OrderSummary struct {
	DisplayID int64
	Status    orders.Status
	Method    string
	CreatedAt time.Time
}

// MyOrders lists the buyer's orders, newest first.
func (s *Service) MyOrders(ctx context.Context, userID int64) ([]OrderSummary, error) {
	list, err := s.engine.Orders(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.summaries(list), nil
}

func (s *Service) summaries(list []models.Order) []OrderSummary {
	out := make([]OrderSummary, len(list))
	for i, o := range list {
		out[i] = OrderSummary{
			DisplayID: s.engine.DisplayID(o.ID),
			Status:    orders.Status(o.Status),
			Method:    o.DeliveryMethod,
			CreatedAt: o.CreatedAt,
		}
	}
	return out
}

// ShowOrder returns an order by its displayed number. Buyers only see their
// own orders.
func (s *Service) ShowOrder(ctx context.Context, viewerID, displayID int64) (*orders.View, error) {
	id, err := s.engine.InternalID(displayID)
	if err != nil {
		return nil, err
	}
	return s.engine.ShowOrder(ctx, id, viewerID)
}

// CancelOrder lets a buyer cancel their own placed order.
func (s *Service) CancelOrder(ctx context.Context, userID, displayID int64) (*orders.StatusChange, error) {
	id, err := s.engine.InternalID(displayID)
	if err != nil {
		return nil, err
	}
	return s.engine.Cancel(ctx, id, userID)
}

// purchasable loads article and checks that userID may buy it in size.
func (s *Service) purchasable(ctx context.Context, userID int64, article, size string) (*models.Product, error) {
	product, err := s.store.ProductByArticle(ctx, article)
	if errors.Is(err, runtime.ErrNotFound) {
		return nil, &runtime.ValidationError{Field: "article", Message: "product is no longer available"}
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", article, err)
	}
	if err := s.unlocked(ctx, *product, userID); err != nil {
		return nil, err
	}
	if !s.sizes.Has(article, size) {
		return nil, &runtime.ValidationError{Field: "size", Message: fmt.Sprintf("size %q is not in stock", size)}
	}
	return product, nil
}

func (s *Service) lineItems(ctx context.Context, d *checkout.Draft) ([]orders.LineItem, error) {
	if !d.FromBasket {
		product, err := s.store.ProductByArticle(ctx, d.Article)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", d.Article, err)
		}
		if err := s.unlocked(ctx, *product, d.UserID); err != nil {
			return nil, err
		}
		return []orders.LineItem{{Product: *product, Size: d.Size}}, nil
	}
	lines, err := s.store.Basket(ctx, d.UserID)
	if err != nil {
		return nil, fmt.Errorf("load basket: %w", err)
	}
	if len(lines) == 0 {
		return nil, &runtime.ValidationError{Field: "items", Message: "basket is empty"}
	}
	items := make([]orders.LineItem, len(lines))
	for i, l := range lines {
		// Access may have been revoked by a new drop cycle since the line
		// was added.
		if err := s.unlocked(ctx, l.Product(), d.UserID); err != nil {
			return nil, err
		}
		items[i] = orders.LineItem{Product: l.Product(), Size: l.Size}
	}
	return items, nil
}

// unlocked fails with ErrDropLocked when product is a drop userID has no
// access to.
func (s *Service) unlocked(ctx context.Context, product models.Product, userID int64) error {
	gated, err := s.gate.IsGated(ctx, product, userID)
	if err != nil {
		return err
	}
	if gated {
		return ErrDropLocked
	}
	return nil
}
