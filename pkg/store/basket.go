package store

import (
	"context"

	"github.com/nikixstore/storefront/pkg/builder"
	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/runtime"
)

const basketQuery = `
	SELECT b.id AS basket_id, b.user_id, b.art, b.size,
	       p.name, p.brand, p.price, p.drop_price, p.is_drop, p.photo_url, p.channel_url
	FROM basket b
	INNER JOIN products p ON b.art = p.art
	WHERE b.user_id = $1
	ORDER BY b.id ASC`

// AddToBasket puts one unit of article in size into the user's basket.
func (s *Store) AddToBasket(ctx context.Context, userID int64, article, size string) (int64, error) {
	rows, err := builder.Insert[models.BasketItem](s.db).
		Values(models.BasketItem{UserID: userID, Article: article, Size: size}).
		Returning("id").
		ExecReturning(ctx)
	if err != nil {
		return 0, err
	}
	return rows[0].ID, nil
}

// Basket returns the user's basket joined with the live product rows.
// Lines whose product was deleted are not returned.
func (s *Store) Basket(ctx context.Context, userID int64) ([]models.BasketLine, error) {
	return basketLines(ctx, s.db, userID)
}

func basketLines(ctx context.Context, q runtime.Querier, userID int64) ([]models.BasketLine, error) {
	return builder.Raw[models.BasketLine](ctx, q, basketQuery, userID)
}

// BasketCount returns the number of units in the user's basket.
func (s *Store) BasketCount(ctx context.Context, userID int64) (int64, error) {
	return builder.Select[models.BasketItem](s.db).Where(builder.Eq("user_id", userID)).Count(ctx)
}

// RemoveBasketItem removes one basket line owned by userID.
func (s *Store) RemoveBasketItem(ctx context.Context, userID, basketID int64) (bool, error) {
	n, err := builder.Delete[models.BasketItem](s.db).
		Where(builder.Eq("id", basketID)).
		Where(builder.Eq("user_id", userID)).
		Exec(ctx)
	return n > 0, err
}

// ClearBasket empties the user's basket.
func (s *Store) ClearBasket(ctx context.Context, userID int64) error {
	_, err := builder.Delete[models.BasketItem](s.db).Where(builder.Eq("user_id", userID)).Exec(ctx)
	return err
}
