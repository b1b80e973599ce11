package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID      int64  `po:"id,primaryKey,bigserial"`
	Article string `po:"article,varchar(30),unique,notNull"`
	Brand   string `po:"brand,varchar(30),notNull"`
	Price   int    `po:"price,integer,notNull"`
	IsDrop  int    `po:"is_drop,smallint,notNull,default(0)"`
}

func TestSelectToSQL(t *testing.T) {
	sql, args, err := Select[widget](nil).
		Where(Eq("brand", "Nike")).
		And(Gt("price", 1000)).
		OrderByDesc("id").
		Limit(10).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM widget WHERE brand = $1 AND price > $2 ORDER BY id DESC LIMIT 10", sql)
	assert.Equal(t, []any{"Nike", 1000}, args)
}

func TestSelectGroupedConditions(t *testing.T) {
	sql, args, err := Select[widget](nil).
		Where(Eq("is_drop", 0)).
		Where(Group(Eq("brand", "A"), Or(Eq("brand", "B")))).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM widget WHERE is_drop = $1 AND (brand = $2 OR brand = $3)", sql)
	assert.Equal(t, []any{0, "A", "B"}, args)
}

func TestSelectInAndAny(t *testing.T) {
	sql, args, err := Select[widget](nil).Where(In("article", "a1", "a2")).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM widget WHERE article IN ($1, $2)", sql)
	assert.Len(t, args, 2)

	sql, _, err = Select[widget](nil).Where(In("article")).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM widget WHERE FALSE", sql)

	sql, args, err = Select[widget](nil).Where(Any("article", []string{"x"})).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM widget WHERE article = ANY($1)", sql)
	assert.Equal(t, []any{[]string{"x"}}, args)
}

func TestSelectForUpdate(t *testing.T) {
	sql, _, err := Select[widget](nil).Where(Eq("id", 1)).ForUpdate().ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM widget WHERE id = $1 FOR UPDATE", sql)
}

func TestInsertToSQL(t *testing.T) {
	sql, args, err := Insert[widget](nil).
		Values(widget{Article: "a1", Brand: "Nike", Price: 100}).
		Returning("id").
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO widget (article, brand, price) VALUES ($1, $2, $3) RETURNING id", sql)
	assert.Equal(t, []any{"a1", "Nike", 100}, args)
}

func TestInsertMixedDefaults(t *testing.T) {
	sql, args, err := Insert[widget](nil).
		Values(
			widget{Article: "a1", Brand: "A", Price: 1},
			widget{Article: "a2", Brand: "B", Price: 2, IsDrop: 1},
		).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO widget (article, brand, price, is_drop) VALUES ($1, $2, $3, DEFAULT), ($4, $5, $6, $7)", sql)
	assert.Equal(t, []any{"a1", "A", 1, "a2", "B", 2, 1}, args)
}

func TestInsertOnConflict(t *testing.T) {
	sql, _, err := Insert[widget](nil).
		Values(widget{Article: "a1", Brand: "A", Price: 1}).
		OnConflictDoUpdate([]string{"article"}, "brand", "price").
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO widget (article, brand, price) VALUES ($1, $2, $3) ON CONFLICT (article) DO UPDATE SET brand = EXCLUDED.brand, price = EXCLUDED.price", sql)

	sql, _, err = Insert[widget](nil).
		Values(widget{Article: "a1", Brand: "A", Price: 1}).
		OnConflictDoNothing().
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO widget (article, brand, price) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING", sql)
}

func TestInsertWithoutValues(t *testing.T) {
	_, _, err := Insert[widget](nil).ToSQL()
	assert.Error(t, err)
}

func TestUpdateToSQL(t *testing.T) {
	sql, args, err := Update[widget](nil).
		Set("price", 500).
		Set("is_drop", 1).
		Set("price", 600).
		Where(Eq("article", "a1")).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE widget SET price = $1, is_drop = $2 WHERE article = $3", sql)
	assert.Equal(t, []any{600, 1, "a1"}, args)
}

func TestUpdateRequiresSet(t *testing.T) {
	_, _, err := Update[widget](nil).Where(Eq("id", 1)).ToSQL()
	assert.Error(t, err)
}

func TestDeleteToSQL(t *testing.T) {
	sql, args, err := Delete[widget](nil).Where(Eq("article", "a1")).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM widget WHERE article = $1", sql)
	assert.Equal(t, []any{"a1"}, args)

	sql, args, err = Delete[widget](nil).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM widget", sql)
	assert.Empty(t, args)
}

func TestUnknownOperator(t *testing.T) {
	_, _, err := Select[widget](nil).Where(Condition{Column: "x", Operator: "~~"}).ToSQL()
	assert.Error(t, err)
}
