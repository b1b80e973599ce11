package readcache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/notify"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis, *notify.Recorder) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	rec := &notify.Recorder{}
	return New(rdb, rec, nil), mr, rec
}

func catalogFixture() []models.Product {
	return []models.Product{
		{ID: 1, Article: "A1", Brand: "Nike", Price: 100, Season: "лето"},
		{ID: 2, Article: "B2", Brand: "Adidas", Price: 200, Season: "демисезон, зима"},
		{ID: 3, Article: "C3", Brand: "Nike", Price: 300, Season: "зима"},
	}
}

func articles(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Article
	}
	return out
}

func TestRebuildAndQueryByBrand(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	require.NoError(t, c.Rebuild(ctx, catalogFixture()))

	nike, err := c.QueryByBrand(ctx, "Nike")
	require.NoError(t, err)
	assert.Equal(t, []string{"C3", "A1"}, articles(nike))

	all, err := c.QueryByBrand(ctx, "all")
	require.NoError(t, err)
	assert.Equal(t, []string{"C3", "B2", "A1"}, articles(all))

	none, err := c.QueryByBrand(ctx, "Puma")
	require.NoError(t, err)
	assert.Empty(t, none)

	brands, err := c.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Adidas", "Nike"}, brands)
}

func TestRebuildRoundTripsFields(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	p := models.Product{
		ID: 7, Type: "кроссовки", Name: "Air Max", Maker: "Vietnam", Material: "кожа, замша",
		Season: "лето", Brand: "Nike", Price: 12000, Article: "AM-1", PhotoURL: "p", ChannelURL: "c",
		SourceURL: "s", IsDrop: 1, DropPrice: 9000,
	}
	require.NoError(t, c.Rebuild(ctx, []models.Product{p}))

	got, err := c.QueryByBrand(ctx, "Nike")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p, got[0])
}

func TestRebuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, mr, _ := newTestCache(t)
	require.NoError(t, c.Rebuild(ctx, catalogFixture()))
	keysFirst := mr.Keys()
	require.NoError(t, c.Rebuild(ctx, catalogFixture()))

	assert.Equal(t, keysFirst, mr.Keys())
	brands, err := c.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Adidas", "Nike"}, brands)
}

func TestRebuildDropsRemovedProducts(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	require.NoError(t, c.Rebuild(ctx, catalogFixture()))
	require.NoError(t, c.Rebuild(ctx, catalogFixture()[:1]))

	all, err := c.QueryByBrand(ctx, "all")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, articles(all))

	winter, err := c.QueryBySeasonToken(ctx, "зима")
	require.NoError(t, err)
	assert.Empty(t, winter)

	brands, err := c.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nike"}, brands)
}

func TestQueryBySeasonAndArticles(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	require.NoError(t, c.Rebuild(ctx, catalogFixture()))

	winter, err := c.QueryBySeasonToken(ctx, "зима")
	require.NoError(t, err)
	assert.Equal(t, []string{"C3", "B2"}, articles(winter))

	set, err := c.QueryByArticleSet(ctx, []string{"A1", "B2", "ZZ"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B2", "A1"}, articles(set))

	byPattern, err := c.QueryByArticlePattern(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"C3"}, articles(byPattern))
}

func TestRebuildFailureAlerts(t *testing.T) {
	ctx := context.Background()
	c, mr, rec := newTestCache(t)
	mr.Close()

	err := c.Rebuild(ctx, catalogFixture())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Len(t, rec.Alerts(), 1)
}

func TestCheckAndAddUser(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	require.NoError(t, c.SeedUsers(ctx, []int64{1, 2}))

	known, err := c.CheckAndAddUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, known)

	known, err = c.CheckAndAddUser(ctx, 3)
	require.NoError(t, err)
	assert.False(t, known)

	known, err = c.CheckAndAddUser(ctx, 3)
	require.NoError(t, err)
	assert.True(t, known)
}

func TestSeasonTokens(t *testing.T) {
	assert.Equal(t, []string{"демисезон", "зима"}, SeasonTokens("демисезон, зима"))
	assert.Equal(t, []string{"лето"}, SeasonTokens(" лето ,"))
	assert.Empty(t, SeasonTokens(""))
}

func TestRebuildKeepsProductsWithColonsApart(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	products := []models.Product{
		{ID: 1, Brand: "New Balance", Article: "NB:550", Season: "лето"},
		{ID: 2, Brand: "New Balance:NB", Article: "550", Season: "лето:зима"},
	}
	require.NoError(t, c.Rebuild(ctx, products))

	all, err := c.QueryByBrand(ctx, "all")
	require.NoError(t, err)
	assert.Equal(t, []string{"550", "NB:550"}, articles(all))

	nb, err := c.QueryByBrand(ctx, "New Balance")
	require.NoError(t, err)
	assert.Equal(t, []string{"NB:550"}, articles(nb))

	nbColon, err := c.QueryByBrand(ctx, "New Balance:NB")
	require.NoError(t, err)
	assert.Equal(t, []string{"550"}, articles(nbColon))

	summer, err := c.QueryBySeasonToken(ctx, "лето")
	require.NoError(t, err)
	assert.Equal(t, []string{"NB:550"}, articles(summer))
}

func TestQueryWithGlobCharacters(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	require.NoError(t, c.Rebuild(ctx, []models.Product{
		{ID: 1, Brand: "N*ke", Article: "A1"},
		{ID: 2, Brand: "Nike", Article: "A2"},
	}))

	got, err := c.QueryByBrand(ctx, "N*ke")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, articles(got))
}

type fakeSource struct {
	products []models.Product
	err      error
	calls    int
}

func (f *fakeSource) AllProducts(context.Context) ([]models.Product, error) {
	f.calls++
	return f.products, f.err
}

func (f *fakeSource) ProductsByBrand(_ context.Context, brand string) ([]models.Product, error) {
	f.calls++
	var out []models.Product
	for _, p := range f.products {
		if brand == "all" || p.Brand == brand {
			out = append(out, p)
		}
	}
	return out, f.err
}

func (f *fakeSource) ProductsBySeasonToken(context.Context, string) ([]models.Product, error) {
	f.calls++
	return f.products, f.err
}

func (f *fakeSource) ProductsByArticles(context.Context, []string) ([]models.Product, error) {
	f.calls++
	return f.products, f.err
}

func (f *fakeSource) ProductsByArticlePattern(context.Context, string) ([]models.Product, error) {
	f.calls++
	return f.products, f.err
}

func (f *fakeSource) Brands(context.Context) ([]string, error) {
	f.calls++
	return []string{"Nike"}, f.err
}

func TestCatalogServesFromCache(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	src := &fakeSource{products: catalogFixture()}
	cat := NewCatalog(c, src, nil)

	require.NoError(t, cat.Rebuild(ctx))
	src.calls = 0

	got, err := cat.ByBrand(ctx, "Nike")
	require.NoError(t, err)
	assert.Equal(t, []string{"C3", "A1"}, articles(got))
	assert.Zero(t, src.calls)
}

func TestCatalogFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	c, mr, rec := newTestCache(t)
	src := &fakeSource{products: catalogFixture()}
	cat := NewCatalog(c, src, nil)
	mr.Close()

	got, err := cat.ByBrand(ctx, "Nike")
	require.NoError(t, err)
	assert.Equal(t, []string{"C3", "A1"}, articles(got))

	brands, err := cat.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nike"}, brands)

	// read failures degrade silently; only rebuild failures alert
	assert.Empty(t, rec.Alerts())
}

func TestCatalogRebuildStoreFailure(t *testing.T) {
	ctx := context.Background()
	c, _, rec := newTestCache(t)
	cat := NewCatalog(c, &fakeSource{err: errors.New("db down")}, nil)

	require.Error(t, cat.Rebuild(ctx))
	assert.True(t, rec.AlertContaining("db down"))
}
