package models

import (
	"reflect"
	"testing"

	"github.com/nikixstore/storefront/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRub(t *testing.T) {
	assert.Equal(t, "0", FormatRub(0))
	assert.Equal(t, "999", FormatRub(999))
	assert.Equal(t, "1 000", FormatRub(1000))
	assert.Equal(t, "12 500", FormatRub(12500))
	assert.Equal(t, "100 000", FormatRub(100000))
	assert.Equal(t, "1 234 567", FormatRub(1234567))
	assert.Equal(t, "-4 500", FormatRub(-4500))
}

func TestProductPricing(t *testing.T) {
	p := Product{Price: 12000, DropPrice: 9000}
	assert.Equal(t, 12000, p.UnitPrice())

	p.IsDrop = 1
	assert.True(t, p.Drop())
	assert.Equal(t, 9000, p.UnitPrice())

	p.DropPrice = 0
	assert.Equal(t, 12000, p.UnitPrice())
}

func TestInSeason(t *testing.T) {
	p := Product{Season: "лето, демисезон"}
	assert.True(t, p.InSeason("лето"))
	assert.True(t, p.InSeason(" демисезон "))
	assert.False(t, p.InSeason("ето"))
	assert.False(t, p.InSeason("%"))
	assert.False(t, Product{}.InSeason(""))
	assert.Equal(t, []string{"лето", "демисезон"}, SeasonTokens(p.Season))
}

func TestHasPostLink(t *testing.T) {
	assert.False(t, Product{}.HasPostLink())
	assert.False(t, Product{ChannelURL: "0"}.HasPostLink())
	assert.True(t, Product{ChannelURL: "https://t.me/c/1"}.HasPostLink())
}

func TestModelsParse(t *testing.T) {
	p := schema.NewParser()
	for _, m := range Tables() {
		meta, err := p.Parse(reflect.TypeOf(m))
		require.NoError(t, err)
		assert.NotEmpty(t, meta.Name)
		assert.NotEmpty(t, meta.Columns)
	}

	meta, err := p.Parse(reflect.TypeOf(Product{}))
	require.NoError(t, err)
	assert.Equal(t, "products", meta.Name)
	assert.True(t, meta.IsPrimaryKey("id"))
}
