package session

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nikixstore/storefront/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb), mr
}

func TestCursorRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	cur := Cursor{Position: 3, Brand: "Nike", WatchMode: CatalogMode(), BackMode: BackBasketFromCatalog}
	require.NoError(t, s.SetCursor(ctx, 42, cur))

	got, err := s.GetCursor(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, cur, got)
	assert.Equal(t, "3", mr.HGet("index:42", "current_index"))

	noBack := Cursor{Position: 3, Brand: "X", WatchMode: CatalogMode()}
	require.NoError(t, s.SetCursor(ctx, 42, noBack))
	got, err = s.GetCursor(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, noBack, got)
}

func TestSetCursorOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.SetCursor(ctx, 1, Cursor{Position: 5, Brand: "Nike", WatchMode: CatalogMode(), BackMode: BackBasketFromMenu}))
	require.NoError(t, s.SetCursor(ctx, 1, Cursor{WatchMode: SearchMode(SearchSize, "42")}))

	got, err := s.GetCursor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Cursor{WatchMode: "search:size:42"}, got)
}

func TestGetCursorAbsent(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.GetCursor(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Zero(t, got.Position)
}

func TestGetCursorBadIndex(t *testing.T) {
	s, mr := newTestStore(t)
	mr.HSet("index:9", "current_index", "oops", "watch_mode", "catalog")

	got, err := s.GetCursor(context.Background(), 9)
	require.NoError(t, err)
	assert.Zero(t, got.Position)
	assert.Equal(t, "catalog", got.WatchMode)
}

func TestCursorStoreUnavailable(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.GetCursor(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.SetCursor(context.Background(), 1, Cursor{}), ErrUnavailable)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		mode    string
		kind    string
		param   string
		wantErr bool
	}{
		{mode: "catalog", kind: ModeCatalog},
		{mode: "search:season:зима", kind: SearchSeason, param: "зима"},
		{mode: "search:size:42.5", kind: SearchSize, param: "42.5"},
		{mode: "search:art:AB:12", kind: SearchArticle, param: "AB:12"},
		{mode: "", wantErr: true},
		{mode: "search:", wantErr: true},
		{mode: "browse", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			kind, param, err := ParseMode(tt.mode)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.param, param)
		})
	}
}

func TestStep(t *testing.T) {
	tests := []struct {
		name          string
		pos, delta, n int
		want          int
	}{
		{"forward", 0, 1, 3, 1},
		{"wrap forward", 2, 1, 3, 0},
		{"wrap backward", 0, -1, 3, 2},
		{"stale position", 9, 1, 3, 0},
		{"empty list", 4, 1, 0, 0},
		{"single item", 0, 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Step(tt.pos, tt.delta, tt.n))
		})
	}
}

type fakeLister struct {
	products []models.Product
	lastArg  any
	err      error
}

func (f *fakeLister) ByBrand(_ context.Context, brand string) ([]models.Product, error) {
	f.lastArg = brand
	return f.products, f.err
}

func (f *fakeLister) BySeason(_ context.Context, token string) ([]models.Product, error) {
	f.lastArg = token
	return f.products, f.err
}

func (f *fakeLister) ByArticles(_ context.Context, articles []string) ([]models.Product, error) {
	f.lastArg = articles
	return f.products, f.err
}

func (f *fakeLister) ByArticlePattern(_ context.Context, query string) ([]models.Product, error) {
	f.lastArg = query
	return f.products, f.err
}

type fakeSizes map[string][]string

func (f fakeSizes) ArticlesWithSize(size string) []string {
	return f[size]
}

func TestResolverDispatch(t *testing.T) {
	ctx := context.Background()
	lister := &fakeLister{products: []models.Product{{Article: "A1"}}}
	r := NewResolver(lister, fakeSizes{"42": {"A1", "B2"}})

	tests := []struct {
		cur  Cursor
		want any
	}{
		{Cursor{WatchMode: CatalogMode(), Brand: "Nike"}, "Nike"},
		{Cursor{WatchMode: SearchMode(SearchSeason, "лето")}, "лето"},
		{Cursor{WatchMode: SearchMode(SearchSize, "42")}, []string{"A1", "B2"}},
		{Cursor{WatchMode: SearchMode(SearchArticle, "AB")}, "AB"},
	}
	for _, tt := range tests {
		t.Run(tt.cur.WatchMode, func(t *testing.T) {
			got, err := r.Resolve(ctx, tt.cur)
			require.NoError(t, err)
			assert.Len(t, got, 1)
			assert.Equal(t, tt.want, lister.lastArg)
		})
	}

	_, err := r.Resolve(ctx, Cursor{WatchMode: "search:color:red"})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestResolverRegister(t *testing.T) {
	r := NewResolver(&fakeLister{}, fakeSizes{})
	r.Register("color", func(_ context.Context, _ Cursor, param string) ([]models.Product, error) {
		return []models.Product{{Article: param}}, nil
	})

	got, err := r.Resolve(context.Background(), Cursor{WatchMode: SearchMode("color", "red")})
	require.NoError(t, err)
	assert.Equal(t, "red", got[0].Article)
}

func TestCurrentClampsStalePosition(t *testing.T) {
	ctx := context.Background()
	lister := &fakeLister{products: []models.Product{{Article: "A"}, {Article: "B"}}}
	r := NewResolver(lister, fakeSizes{})

	view, err := r.Current(ctx, Cursor{WatchMode: CatalogMode(), Brand: "all", Position: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, view.Index)
	assert.Equal(t, "B", view.Product().Article)
	assert.Equal(t, 2, view.Total())

	lister.products = nil
	_, err = r.Current(ctx, Cursor{WatchMode: CatalogMode(), Brand: "all"})
	assert.ErrorIs(t, err, ErrEmpty)

	lister.err = errors.New("boom")
	_, err = r.Current(ctx, Cursor{WatchMode: CatalogMode(), Brand: "all"})
	assert.EqualError(t, err, "boom")
}
