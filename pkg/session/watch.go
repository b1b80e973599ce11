package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nikixstore/storefront/pkg/models"
)

// Watch mode kinds.
const (
	ModeCatalog   = "catalog"
	searchPrefix  = "search:"
	SearchSeason  = "season"
	SearchSize    = "size"
	SearchArticle = "art"
)

var (
	// ErrUnknownMode is returned for a watch mode with no query behind it.
	ErrUnknownMode = errors.New("unknown watch mode")
	// ErrEmpty is returned when the result set behind a cursor is empty.
	ErrEmpty = errors.New("empty result set")
)

// CatalogMode returns the watch mode for browsing by brand.
func CatalogMode() string {
	return ModeCatalog
}

// SearchMode returns the watch mode of a search.
func SearchMode(kind, param string) string {
	return searchPrefix + kind + ":" + param
}

// ParseMode splits a watch mode into its kind and parameter. Catalog mode
// has kind "catalog" and an empty parameter.
func ParseMode(mode string) (kind, param string, err error) {
	if mode == ModeCatalog {
		return ModeCatalog, "", nil
	}
	rest, ok := strings.CutPrefix(mode, searchPrefix)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	kind, param, ok = strings.Cut(rest, ":")
	if !ok || kind == "" {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return kind, param, nil
}

// Lister answers the product queries behind watch modes.
type Lister interface {
	ByBrand(ctx context.Context, brand string) ([]models.Product, error)
	BySeason(ctx context.Context, token string) ([]models.Product, error)
	ByArticles(ctx context.Context, articles []string) ([]models.Product, error)
	ByArticlePattern(ctx context.Context, query string) ([]models.Product, error)
}

// SizeIndex maps a size label to the articles stocking it.
type SizeIndex interface {
	ArticlesWithSize(size string) []string
}

// QueryFunc recomputes the result set for a cursor.
type QueryFunc func(ctx context.Context, cur Cursor, param string) ([]models.Product, error)

// Resolver maps watch modes to their query.
type Resolver struct {
	routes map[string]QueryFunc
}

// NewResolver builds the dispatch table over lister and sizes.
func NewResolver(lister Lister, sizes SizeIndex) *Resolver {
	return &Resolver{routes: map[string]QueryFunc{
		ModeCatalog: func(ctx context.Context, cur Cursor, _ string) ([]models.Product, error) {
			return lister.ByBrand(ctx, cur.Brand)
		},
		SearchSeason: func(ctx context.Context, _ Cursor, token string) ([]models.Product, error) {
			return lister.BySeason(ctx, token)
		},
		SearchSize: func(ctx context.Context, _ Cursor, size string) ([]models.Product, error) {
			return lister.ByArticles(ctx, sizes.ArticlesWithSize(size))
		},
		SearchArticle: func(ctx context.Context, _ Cursor, query string) ([]models.Product, error) {
			return lister.ByArticlePattern(ctx, query)
		},
	}}
}

// Register adds or replaces the query behind a watch mode kind.
func (r *Resolver) Register(kind string, fn QueryFunc) {
	r.routes[kind] = fn
}

// Resolve recomputes the list the cursor points into.
func (r *Resolver) Resolve(ctx context.Context, cur Cursor) ([]models.Product, error) {
	kind, param, err := ParseMode(cur.WatchMode)
	if err != nil {
		return nil, err
	}
	fn, ok := r.routes[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cur.WatchMode)
	}
	return fn(ctx, cur, param)
}

// View is the product a cursor points at within its recomputed list.
type View struct {
	Products []models.Product
	Index    int
}

// Product returns the product under the cursor.
func (v View) Product() models.Product {
	return v.Products[v.Index]
}

// Total returns the length of the list.
func (v View) Total() int {
	return len(v.Products)
}

// Current resolves the cursor and clamps a stale position into range.
func (r *Resolver) Current(ctx context.Context, cur Cursor) (View, error) {
	products, err := r.Resolve(ctx, cur)
	if err != nil {
		return View{}, err
	}
	if len(products) == 0 {
		return View{}, ErrEmpty
	}
	return View{Products: products, Index: Clamp(cur.Position, len(products))}, nil
}

// Clamp limits pos to [0, n-1].
func Clamp(pos, n int) int {
	if pos < 0 || n <= 0 {
		return 0
	}
	if pos >= n {
		return n - 1
	}
	return pos
}

// Step moves pos by delta inside a list of n items, wrapping at both ends.
func Step(pos, delta, n int) int {
	if n <= 0 {
		return 0
	}
	pos = Clamp(pos, n) + delta
	pos %= n
	if pos < 0 {
		pos += n
	}
	return pos
}
