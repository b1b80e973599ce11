package readcache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikixstore/storefront/pkg/models"
)

// Source is the authoritative product store behind the cache.
type Source interface {
	AllProducts(ctx context.Context) ([]models.Product, error)
	ProductsByBrand(ctx context.Context, brand string) ([]models.Product, error)
	ProductsBySeasonToken(ctx context.Context, token string) ([]models.Product, error)
	ProductsByArticles(ctx context.Context, articles []string) ([]models.Product, error)
	ProductsByArticlePattern(ctx context.Context, query string) ([]models.Product, error)
	Brands(ctx context.Context) ([]string, error)
}

// Catalog answers product queries from the cache and falls back to the
// store whenever the cache fails.
type Catalog struct {
	cache  *Cache
	source Source
	log    *slog.Logger
}

// NewCatalog returns a Catalog reading through cache with source as fallback.
func NewCatalog(cache *Cache, source Source, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{cache: cache, source: source, log: log}
}

// Cache returns the underlying cache.
func (c *Catalog) Cache() *Cache {
	return c.cache
}

// Rebuild reloads every product from the store into the cache.
func (c *Catalog) Rebuild(ctx context.Context) error {
	products, err := c.source.AllProducts(ctx)
	if err != nil {
		c.cache.alert.Alert(ctx, fmt.Sprintf("Не удалось прочитать товары для кэша: %v", err))
		return fmt.Errorf("load products: %w", err)
	}
	return c.cache.Rebuild(ctx, products)
}

// ByBrand returns the products of brand ("all" for every brand), newest first.
func (c *Catalog) ByBrand(ctx context.Context, brand string) ([]models.Product, error) {
	return fallback(ctx, c, "brand", brand,
		func() ([]models.Product, error) { return c.cache.QueryByBrand(ctx, brand) },
		func() ([]models.Product, error) { return c.source.ProductsByBrand(ctx, brand) })
}

// BySeason returns the products tagged with a season token.
func (c *Catalog) BySeason(ctx context.Context, token string) ([]models.Product, error) {
	return fallback(ctx, c, "season", token,
		func() ([]models.Product, error) { return c.cache.QueryBySeasonToken(ctx, token) },
		func() ([]models.Product, error) { return c.source.ProductsBySeasonToken(ctx, token) })
}

// ByArticles returns the products whose article is in articles.
func (c *Catalog) ByArticles(ctx context.Context, articles []string) ([]models.Product, error) {
	return fallback(ctx, c, "articles", fmt.Sprint(len(articles)),
		func() ([]models.Product, error) { return c.cache.QueryByArticleSet(ctx, articles) },
		func() ([]models.Product, error) { return c.source.ProductsByArticles(ctx, articles) })
}

// ByArticlePattern returns the products whose article contains query.
func (c *Catalog) ByArticlePattern(ctx context.Context, query string) ([]models.Product, error) {
	return fallback(ctx, c, "article", query,
		func() ([]models.Product, error) { return c.cache.QueryByArticlePattern(ctx, query) },
		func() ([]models.Product, error) { return c.source.ProductsByArticlePattern(ctx, query) })
}

// Brands returns the sorted brand names.
func (c *Catalog) Brands(ctx context.Context) ([]string, error) {
	brands, err := c.cache.Brands(ctx)
	if err == nil {
		return brands, nil
	}
	c.log.Warn("read cache failed, using store", "query", "brands", "error", err)
	return c.source.Brands(ctx)
}

func fallback(ctx context.Context, c *Catalog, query, arg string, cached, direct func() ([]models.Product, error)) ([]models.Product, error) {
	products, err := cached()
	if err == nil {
		return products, nil
	}
	c.log.WarnContext(ctx, "read cache failed, using store", "query", query, "arg", arg, "error", err)
	products, err = direct()
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", query, err)
	}
	SortNewestFirst(products)
	return products, nil
}
