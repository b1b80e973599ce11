// Package readcache keeps a Redis projection of the product table,
// indexed by brand and by season token.
//
// Key layout:
//
//	product:{article}  hash, one per product
//	brand:{brand}      set, articles of the brand
//	season:{token}     set, articles tagged with the season token
//	brands             list, sorted distinct brand names
//	user_ids           set, chat ids of known users
//
// Only the article is part of a product key, so brand and season names may
// contain any character, including ':'.
package readcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/notify"
	"github.com/redis/go-redis/v9"
)

const (
	brandsKey  = "brands"
	usersKey   = "user_ids"
	scanBatch  = 500
	allBrands  = "all"
	productPfx = "product:"
	brandPfx   = "brand:"
	seasonPfx  = "season:"
)

// ErrUnavailable wraps every Redis failure returned by the cache.
var ErrUnavailable = errors.New("read cache unavailable")

// Cache is the Redis-backed product projection.
type Cache struct {
	rdb   *redis.Client
	alert notify.Alerter
	log   *slog.Logger
}

// New returns a Cache over rdb. Rebuild failures are sent to alert.
func New(rdb *redis.Client, alert notify.Alerter, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{rdb: rdb, alert: alert, log: log}
}

// Ping checks that Redis answers.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func productKey(article string) string {
	return productPfx + article
}

func brandKey(brand string) string {
	return brandPfx + brand
}

func seasonKey(token string) string {
	return seasonPfx + token
}

// SeasonTokens splits a comma-joined season set into its tokens.
func SeasonTokens(season string) []string {
	return models.SeasonTokens(season)
}

// Rebuild replaces the whole projection with products. Stale keys are
// deleted and the new ones written inside one MULTI/EXEC block, so readers
// see either the old or the new projection. A failure is alerted.
func (c *Cache) Rebuild(ctx context.Context, products []models.Product) error {
	if err := c.rebuild(ctx, products); err != nil {
		c.alert.Alert(ctx, fmt.Sprintf("Не удалось обновить кэш товаров: %v", err))
		return unavailable(err)
	}
	c.log.Info("read cache rebuilt", "products", len(products))
	return nil
}

func (c *Cache) rebuild(ctx context.Context, products []models.Product) error {
	var stale []string
	for _, pfx := range []string{productPfx, brandPfx, seasonPfx} {
		keys, err := c.scanKeys(ctx, pfx+"*")
		if err != nil {
			return err
		}
		stale = append(stale, keys...)
	}

	brandSet := make(map[string]struct{})
	for _, p := range products {
		if p.Brand != "" {
			brandSet[p.Brand] = struct{}{}
		}
	}
	brands := make([]any, 0, len(brandSet))
	for _, b := range sortedKeys(brandSet) {
		brands = append(brands, b)
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(stale) > 0 {
			pipe.Del(ctx, stale...)
		}
		pipe.Del(ctx, brandsKey)
		for _, p := range products {
			pipe.HSet(ctx, productKey(p.Article), encodeProduct(p))
			pipe.SAdd(ctx, brandKey(p.Brand), p.Article)
			for _, token := range SeasonTokens(p.Season) {
				pipe.SAdd(ctx, seasonKey(token), p.Article)
			}
		}
		if len(brands) > 0 {
			pipe.RPush(ctx, brandsKey, brands...)
		}
		return nil
	})
	return err
}

// QueryByBrand returns the cached products of brand, newest first.
// The brand "all" returns every product.
func (c *Cache) QueryByBrand(ctx context.Context, brand string) ([]models.Product, error) {
	if brand == allBrands {
		return c.loadAll(ctx, nil)
	}
	return c.loadMembers(ctx, brandKey(brand))
}

// QueryBySeasonToken returns the products tagged with a season token, newest first.
func (c *Cache) QueryBySeasonToken(ctx context.Context, token string) ([]models.Product, error) {
	return c.loadMembers(ctx, seasonKey(strings.TrimSpace(token)))
}

// QueryByArticleSet returns the cached products whose article is in articles.
func (c *Cache) QueryByArticleSet(ctx context.Context, articles []string) ([]models.Product, error) {
	if len(articles) == 0 {
		return nil, nil
	}
	keys := make([]string, len(articles))
	for i, a := range articles {
		keys[i] = productKey(a)
	}
	return c.load(ctx, dedupe(keys), nil)
}

// QueryByArticlePattern returns products whose article contains query,
// ignoring case.
func (c *Cache) QueryByArticlePattern(ctx context.Context, query string) ([]models.Product, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return c.loadAll(ctx, func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Article), q)
	})
}

// Brands returns the sorted brand list.
func (c *Cache) Brands(ctx context.Context) ([]string, error) {
	brands, err := c.rdb.LRange(ctx, brandsKey, 0, -1).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return brands, nil
}

// SeedUsers adds known user ids to the user set.
func (c *Cache) SeedUsers(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := c.rdb.SAdd(ctx, usersKey, members...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// CheckAndAddUser reports whether userID was already known and records it.
func (c *Cache) CheckAndAddUser(ctx context.Context, userID int64) (bool, error) {
	added, err := c.rdb.SAdd(ctx, usersKey, userID).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return added == 0, nil
}

func (c *Cache) loadAll(ctx context.Context, keep func(models.Product) bool) ([]models.Product, error) {
	keys, err := c.scanKeys(ctx, productPfx+"*")
	if err != nil {
		return nil, unavailable(err)
	}
	return c.load(ctx, keys, keep)
}

// loadMembers loads the products whose articles are members of the index set.
func (c *Cache) loadMembers(ctx context.Context, index string) ([]models.Product, error) {
	members, err := c.rdb.SMembers(ctx, index).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	keys := make([]string, len(members))
	for i, a := range members {
		keys[i] = productKey(a)
	}
	return c.load(ctx, keys, nil)
}

func (c *Cache) load(ctx context.Context, keys []string, keep func(models.Product) bool) ([]models.Product, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HGetAll(ctx, key)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}

	products := make([]models.Product, 0, len(keys))
	for i, cmd := range cmds {
		fields := cmd.Val()
		// the key vanished between the lookup and HGETALL
		if len(fields) == 0 {
			continue
		}
		p, err := decodeProduct(fields)
		if err != nil {
			return nil, unavailable(fmt.Errorf("decode %s: %w", keys[i], err))
		}
		if keep != nil && !keep(p) {
			continue
		}
		products = append(products, p)
	}
	SortNewestFirst(products)
	return products, nil
}

func (c *Cache) scanKeys(ctx context.Context, match string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.rdb.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if next == 0 {
			break
		}
		cursor = next
	}
	return dedupe(keys), nil
}

// SortNewestFirst orders products by id, highest first.
func SortNewestFirst(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool { return products[i].ID > products[j].ID })
}

func encodeProduct(p models.Product) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"type":        p.Type,
		"name":        p.Name,
		"maker":       p.Maker,
		"material":    p.Material,
		"season":      p.Season,
		"brand":       p.Brand,
		"price":       p.Price,
		"art":         p.Article,
		"photo_url":   p.PhotoURL,
		"channel_url": p.ChannelURL,
		"source_url":  p.SourceURL,
		"is_drop":     p.IsDrop,
		"drop_price":  p.DropPrice,
	}
}

func decodeProduct(f map[string]string) (models.Product, error) {
	p := models.Product{
		Type:       f["type"],
		Name:       f["name"],
		Maker:      f["maker"],
		Material:   f["material"],
		Season:     f["season"],
		Brand:      f["brand"],
		Article:    f["art"],
		PhotoURL:   f["photo_url"],
		ChannelURL: f["channel_url"],
		SourceURL:  f["source_url"],
	}
	var err error
	if p.ID, err = strconv.ParseInt(f["id"], 10, 64); err != nil {
		return p, fmt.Errorf("id: %w", err)
	}
	for name, dst := range map[string]*int{"price": &p.Price, "is_drop": &p.IsDrop, "drop_price": &p.DropPrice} {
		raw, ok := f[name]
		if !ok || raw == "" {
			continue
		}
		if *dst, err = strconv.Atoi(raw); err != nil {
			return p, fmt.Errorf("%s: %w", name, err)
		}
	}
	return p, nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
