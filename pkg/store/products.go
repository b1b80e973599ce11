package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nikixstore/storefront/pkg/builder"
	"github.com/nikixstore/storefront/pkg/models"
)

// upsertColumns are overwritten when an imported article already exists.
var upsertColumns = []string{
	"type", "name", "maker", "material", "season", "brand", "price",
	"photo_url", "channel_url", "source_url", "is_drop", "drop_price",
}

// UpsertProducts inserts or overwrites products one row at a time so that a
// bad row fails alone. It returns the failed rows.
func (s *Store) UpsertProducts(ctx context.Context, products []models.Product) []RowError {
	start := time.Now()
	var failed []RowError
	for i, p := range products {
		_, err := builder.Insert[models.Product](s.db).
			Values(p).
			OnConflictDoUpdate([]string{"art"}, upsertColumns...).
			Exec(ctx)
		if err != nil {
			failed = append(failed, RowError{Row: i + 1, Article: p.Article, Err: err})
		}
	}
	s.log.Info("products upserted", "rows", len(products), "failed", len(failed), since(start))
	return failed
}

// AllProducts returns every product, newest first.
func (s *Store) AllProducts(ctx context.Context) ([]models.Product, error) {
	return builder.Select[models.Product](s.db).OrderByDesc("id").All(ctx)
}

// ProductsByBrand returns the products of brand, newest first. "all" selects every brand.
func (s *Store) ProductsByBrand(ctx context.Context, brand string) ([]models.Product, error) {
	q := builder.Select[models.Product](s.db)
	if brand != "all" {
		q.Where(builder.Eq("brand", brand))
	}
	return q.OrderByDesc("id").All(ctx)
}

// ProductsBySeasonToken returns products whose season set contains token as
// a whole token.
func (s *Store) ProductsBySeasonToken(ctx context.Context, token string) ([]models.Product, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	candidates, err := builder.Select[models.Product](s.db).
		Where(builder.Like("season", "%"+escapeLike(token)+"%")).
		OrderByDesc("id").
		All(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Product
	for _, p := range candidates {
		if p.InSeason(token) {
			out = append(out, p)
		}
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike quotes the LIKE wildcards in s.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ProductsByArticles returns the products whose article is in articles.
func (s *Store) ProductsByArticles(ctx context.Context, articles []string) ([]models.Product, error) {
	if len(articles) == 0 {
		return nil, nil
	}
	return builder.Select[models.Product](s.db).
		Where(builder.Any("art", articles)).
		OrderByDesc("id").
		All(ctx)
}

// ProductsByArticlePattern finds products whose article contains query.
func (s *Store) ProductsByArticlePattern(ctx context.Context, query string) ([]models.Product, error) {
	return builder.Select[models.Product](s.db).
		Where(builder.ILike("art", "%"+escapeLike(query)+"%")).
		OrderByDesc("id").
		All(ctx)
}

// ProductByArticle returns one product.
func (s *Store) ProductByArticle(ctx context.Context, article string) (*models.Product, error) {
	return builder.Select[models.Product](s.db).Where(builder.Eq("art", article)).First(ctx)
}

// Brands returns the distinct non-empty brand names, sorted.
func (s *Store) Brands(ctx context.Context) ([]string, error) {
	return builder.Select[models.Product](s.db).
		Distinct().
		Where(builder.NotEq("brand", "")).
		OrderByAsc("brand").
		Pluck(ctx, "brand")
}

// SizeSource pairs an article with the page its sizes are read from.
type SizeSource struct {
	Article string
	URL     string
}

// SizeSources lists the size source of every product.
func (s *Store) SizeSources(ctx context.Context) ([]SizeSource, error) {
	products, err := builder.Select[models.Product](s.db).Columns("art", "source_url").All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SizeSource, 0, len(products))
	for _, p := range products {
		out = append(out, SizeSource{Article: p.Article, URL: p.SourceURL})
	}
	return out, nil
}

// DeleteProduct removes one product. It reports whether a row was removed.
func (s *Store) DeleteProduct(ctx context.Context, article string) (bool, error) {
	n, err := builder.Delete[models.Product](s.db).Where(builder.Eq("art", article)).Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", article, err)
	}
	return n > 0, nil
}

// DeleteAllProducts empties the catalog.
func (s *Store) DeleteAllProducts(ctx context.Context) (int64, error) {
	return builder.Delete[models.Product](s.db).Exec(ctx)
}

// ChangePrice sets the regular price of article.
func (s *Store) ChangePrice(ctx context.Context, article string, price int) (bool, error) {
	n, err := builder.Update[models.Product](s.db).
		Set("price", price).
		Where(builder.Eq("art", article)).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("change price of %s: %w", article, err)
	}
	return n > 0, nil
}

// EditPostLink sets the channel post link of article.
func (s *Store) EditPostLink(ctx context.Context, article, link string) (bool, error) {
	n, err := builder.Update[models.Product](s.db).
		Set("channel_url", link).
		Where(builder.Eq("art", article)).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("edit post link of %s: %w", article, err)
	}
	return n > 0, nil
}

// StopDrop takes every product out of the drop.
func (s *Store) StopDrop(ctx context.Context) (int64, error) {
	return builder.Update[models.Product](s.db).
		Set("is_drop", 0).
		Where(builder.Eq("is_drop", 1)).
		Exec(ctx)
}
