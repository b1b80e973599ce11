package store

import (
	"context"
	"fmt"

	"github.com/nikixstore/storefront/pkg/builder"
	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/runtime"
)

// InsertOrder writes the order and its items in one transaction and returns
// the internal order id. When clearBasket is set the user's basket is emptied
// in the same transaction.
func (s *Store) InsertOrder(ctx context.Context, order models.Order, items []models.OrderItem, clearBasket bool) (int64, error) {
	if len(items) == 0 {
		return 0, &runtime.ValidationError{Field: "items", Message: "order has no items"}
	}

	var id int64
	err := s.db.WithTx(ctx, func(q runtime.Querier) error {
		rows, err := builder.Insert[models.Order](q).Values(order).Returning("id").ExecReturning(ctx)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		id = rows[0].ID

		for i := range items {
			items[i].OrderID = id
		}
		if _, err := builder.Insert[models.OrderItem](q).Values(items...).Exec(ctx); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}

		if clearBasket {
			if _, err := builder.Delete[models.BasketItem](q).Where(builder.Eq("user_id", order.UserID)).Exec(ctx); err != nil {
				return fmt.Errorf("clear basket: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("order stored", "order_id", id, "user_id", order.UserID, "items", len(items))
	return id, nil
}

// SetOrderStatus writes the status code of an order.
func (s *Store) SetOrderStatus(ctx context.Context, orderID int64, status int) error {
	n, err := builder.Update[models.Order](s.db).
		Set("status", status).
		Where(builder.Eq("id", orderID)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return runtime.ErrNotFound
	}
	return nil
}

// SetOrderMessage stores the operations channel message mirroring the order.
func (s *Store) SetOrderMessage(ctx context.Context, orderID, handle int64) error {
	n, err := builder.Update[models.Order](s.db).
		Set("message_from_channel", handle).
		Where(builder.Eq("id", orderID)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return runtime.ErrNotFound
	}
	return nil
}

// Order returns one order by internal id.
func (s *Store) Order(ctx context.Context, orderID int64) (*models.Order, error) {
	return builder.Select[models.Order](s.db).Where(builder.Eq("id", orderID)).First(ctx)
}

// OrderItems returns the items captured for an order.
func (s *Store) OrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	return builder.Select[models.OrderItem](s.db).
		Where(builder.Eq("order_id", orderID)).
		OrderByAsc("id").
		All(ctx)
}

// OrdersByUser returns a user's orders, newest first.
func (s *Store) OrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	return builder.Select[models.Order](s.db).
		Where(builder.Eq("user_id", userID)).
		OrderByDesc("id").
		All(ctx)
}

// RecentOrders returns the latest orders across all users.
func (s *Store) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	return builder.Select[models.Order](s.db).OrderByDesc("id").Limit(limit).All(ctx)
}
