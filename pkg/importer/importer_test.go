package importer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/notify"
	"github.com/nikixstore/storefront/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	products map[string]models.Product
	photos   []models.PhotoLinks
	reject   map[string]bool
	deleted  bool
}

func newMemStore() *memStore {
	return &memStore{products: make(map[string]models.Product), reject: make(map[string]bool)}
}

func (m *memStore) UpsertProducts(_ context.Context, products []models.Product) []store.RowError {
	var failed []store.RowError
	for i, p := range products {
		if m.reject[p.Article] {
			failed = append(failed, store.RowError{Row: i + 1, Article: p.Article, Err: errors.New("value too long")})
			continue
		}
		m.products[p.Article] = p
	}
	return failed
}

func (m *memStore) DeleteAllProducts(context.Context) (int64, error) {
	n := int64(len(m.products))
	m.products = make(map[string]models.Product)
	m.deleted = true
	return n, nil
}

func (m *memStore) AllProducts(context.Context) ([]models.Product, error) {
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) ReplacePhotoLinks(_ context.Context, rows []models.PhotoLinks) ([]store.RowError, error) {
	m.photos = nil
	var failed []store.RowError
	for i, r := range rows {
		if m.reject[r.Article] {
			failed = append(failed, store.RowError{Row: i + 1, Article: r.Article, Err: errors.New("duplicate key")})
			continue
		}
		m.photos = append(m.photos, r)
	}
	return failed, nil
}

type countingRebuilder struct{ calls int }

func (c *countingRebuilder) Rebuild(context.Context) error {
	c.calls++
	return nil
}

const header = "type,name,maker,material,season,brand,price,article,photo_url,channel_url,source_url,drop_flag\n"

func TestParseProductsNormalizes(t *testing.T) {
	file := " type , name,maker,material,season,brand,price,article,photo_url,channel_url,source_url,drop_flag\n" +
		"Кроссовки, Air Max ,Nike,Кожа:Замша,demi:summer,Nike,12500,A1,p.jpg,https://t.me/c/1,https://src/a1,7\n"
	rows, failures, err := ParseProducts(strings.NewReader(file))
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, rows, 1)

	p := rows[0].Product
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Air Max", p.Name)
	assert.Equal(t, "кожа, замша", p.Material)
	assert.Equal(t, "demi, summer", p.Season)
	assert.Equal(t, 12500, p.Price)
	assert.Equal(t, 0, p.IsDrop)
	assert.Equal(t, "https://src/a1", p.SourceURL)
}

func TestParseProductsIsolatesBadRows(t *testing.T) {
	file := header +
		"t,n,m,mat,winter,X,abc,BAD,p,c,s,0\n" +
		"t,n,m,mat,winter,X,100,A1,p,c,s,1\n" +
		"t,n,m\n" +
		"t,n,m,mat,winter,X,100,,p,c,s,0\n"
	rows, failures, err := ParseProducts(strings.NewReader(file))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A1", rows[0].Product.Article)
	assert.Equal(t, 1, rows[0].Product.IsDrop)

	require.Len(t, failures, 3)
	assert.Equal(t, 2, failures[0].Line)
	assert.Equal(t, "BAD", failures[0].Article)
	assert.Equal(t, 4, failures[1].Line)
	assert.Equal(t, 5, failures[2].Line)
}

func TestParseProductsDropPriceAndAliases(t *testing.T) {
	file := "type,name,maker,material,season,brand,price,art,photo_url,channel_url,anki_url,drop,drop_price\n" +
		"t,n,m,mat,winter,X,15000,D1,p,c,s,1,9900\n"
	rows, failures, err := ParseProducts(strings.NewReader(file))
	require.NoError(t, err)
	require.Empty(t, failures)
	assert.Equal(t, 9900, rows[0].Product.DropPrice)
	assert.Equal(t, 9900, rows[0].Product.UnitPrice())
}

func TestParseProductsHeader(t *testing.T) {
	_, _, err := ParseProducts(strings.NewReader("name,type\nx,y\n"))
	assert.ErrorIs(t, err, ErrHeader)

	_, _, err = ParseProducts(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrHeader)
}

func TestImportProducts(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.reject["LONG"] = true
	rec := &notify.Recorder{}
	rb := &countingRebuilder{}
	im := New(st, rb, rec, nil)

	file := header +
		"t,n,m,mat,winter,X,100,A1,p,c,s,0\n" +
		"t,n,m,mat,winter,X,oops,A2,p,c,s,0\n" +
		"t,n,m,mat,winter,X,300,LONG,p,c,s,0\n"
	rep, err := im.ImportProducts(ctx, strings.NewReader(file), Incremental)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Rows)
	assert.Equal(t, 1, rep.Imported)
	require.Len(t, rep.Failures, 2)
	assert.Equal(t, 4, rep.Failures[1].Line)
	assert.Equal(t, "LONG", rep.Failures[1].Article)
	assert.Contains(t, st.products, "A1")
	assert.Equal(t, 1, rb.calls)
	assert.True(t, rec.AlertContaining("завершена с ошибками"))
	assert.True(t, rec.AlertContaining("A2"))
}

func TestImportFullReplaces(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.products["OLD"] = models.Product{Article: "OLD"}
	rec := &notify.Recorder{}
	im := New(st, nil, rec, nil)

	rep, err := im.ImportProducts(ctx, strings.NewReader(header+"t,n,m,mat,winter,X,100,A1,p,c,s,0\n"), Full)
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.True(t, st.deleted)
	assert.Equal(t, int64(1), rep.Deleted)
	assert.NotContains(t, st.products, "OLD")
	assert.Empty(t, rec.Alerts())
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	im := New(st, nil, &notify.Recorder{}, nil)

	file := header + "Кеды,Chuck,Converse,Кожа:Текстиль,summer:demi,Converse,7000,C1,p.jpg,c,s,1\n"
	_, err := im.ImportProducts(ctx, strings.NewReader(file), Incremental)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := im.ExportProducts(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "кожа:текстиль,summer:demi")

	rows, failures, err := ParseProducts(&buf)
	require.NoError(t, err)
	require.Empty(t, failures)
	assert.Equal(t, st.products["C1"], rows[0].Product)
}

func TestImportPhotos(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.reject["DUP"] = true
	rec := &notify.Recorder{}
	im := New(st, nil, rec, nil)

	file := "art,photo2_url,photo3_url,photo4_url\n" +
		"A1,p2,p3,p4\n" +
		",x,y,z\n" +
		"DUP,p2,p3,p4\n"
	rep, err := im.ImportPhotos(ctx, strings.NewReader(file))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Rows)
	assert.Equal(t, 1, rep.Imported)
	require.Len(t, st.photos, 1)
	assert.Equal(t, "p4", st.photos[0].Photo4)
	require.Len(t, rep.Failures, 2)
	assert.Equal(t, 4, rep.Failures[1].Line)
	assert.True(t, rec.AlertContaining("DUP"))
}

func TestSummaryCapsFailures(t *testing.T) {
	rep := Report{Kind: "products", Rows: 30}
	for i := 0; i < 25; i++ {
		rep.Failures = append(rep.Failures, RowFailure{Line: i + 2, Reason: "bad"})
	}
	s := rep.Summary()
	assert.Contains(t, s, "и ещё 5")
	assert.Equal(t, maxListedFailures+2, strings.Count(s, "\n")+1)
}
