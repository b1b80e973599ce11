package migration

import (
	"reflect"
	"strings"
	"testing"

	"github.com/nikixstore/storefront/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plannedProduct struct {
	ID      int64  `po:"id,primaryKey,bigserial"`
	Article string `po:"article,varchar(30),unique,notNull"`
	Brand   string `po:"brand,varchar(30),notNull,index"`
	IsDrop  int    `po:"is_drop,smallint,notNull,default(0)"`
}

type plannedAccess struct {
	UserID int64 `po:"user_id,primaryKey,bigint"`
	Drop   int64 `po:"drop_id,primaryKey,bigint"`
}

func parse(t *testing.T, model any) *schema.TableMetadata {
	t.Helper()
	table, err := schema.NewParser().Parse(reflect.TypeOf(model))
	require.NoError(t, err)
	return table
}

func TestPlanCreatesTablesAndIndexes(t *testing.T) {
	products := parse(t, plannedProduct{})
	access := parse(t, plannedAccess{})

	m := NewPlanner().Plan("20240101000000", "initial", []*schema.TableMetadata{products, access})

	assert.Equal(t, "20240101000000", m.Version)
	assert.Contains(t, m.UpSQL, "CREATE TABLE IF NOT EXISTS planned_product (\n    id bigserial PRIMARY KEY,\n    article varchar(30) NOT NULL UNIQUE,")
	assert.Contains(t, m.UpSQL, "is_drop smallint NOT NULL DEFAULT 0")
	assert.Contains(t, m.UpSQL, "CREATE INDEX IF NOT EXISTS idx_planned_product_brand ON planned_product (brand);")
	assert.Contains(t, m.UpSQL, "CONSTRAINT planned_access_pkey PRIMARY KEY (user_id, drop_id)")

	// dropped in reverse creation order
	assert.Equal(t, "DROP TABLE IF EXISTS \"planned_access\";\nDROP TABLE IF EXISTS \"planned_product\";\n", m.DownSQL)
}

func TestPlanWithoutIfNotExists(t *testing.T) {
	m := NewPlannerWithOptions(PlannerOptions{}).Plan("1", "x", []*schema.TableMetadata{parse(t, plannedProduct{})})
	assert.True(t, strings.HasPrefix(m.UpSQL, "CREATE TABLE planned_product ("))
	assert.Contains(t, m.UpSQL, "CREATE INDEX idx_planned_product_brand")
}

func TestSplitSQL(t *testing.T) {
	m := NewPlanner().Plan("1", "x", []*schema.TableMetadata{parse(t, plannedProduct{})})
	stmts := splitSQL(m.UpSQL)
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE"))
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE INDEX"))

	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, splitSQL("-- header\nSELECT 1;\n\n-- note\nSELECT 2;\n"))
}
