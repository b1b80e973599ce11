// Package builder provides a type-safe query builder for PostgreSQL.
package builder

import (
	"github.com/nikixstore/storefront/pkg/registry"
	"github.com/nikixstore/storefront/pkg/runtime"
	"github.com/nikixstore/storefront/pkg/schema"
)

// Query represents a generic database query.
type Query interface {
	// ToSQL generates the SQL query and parameter values.
	ToSQL() (sql string, args []any, err error)
}

// SelectQuery represents a SELECT query with type safety.
type SelectQuery[T any] struct {
	q         runtime.Querier
	table     *schema.TableMetadata
	err       error
	columns   []string
	where     []Condition
	orderBy   []OrderBy
	limit     *int
	offset    *int
	distinct  bool
	forUpdate bool
}

// InsertQuery represents an INSERT query.
type InsertQuery[T any] struct {
	q          runtime.Querier
	table      *schema.TableMetadata
	err        error
	values     []T
	returning  []string
	onConflict *OnConflict
}

// UpdateQuery represents an UPDATE query.
type UpdateQuery[T any] struct {
	q         runtime.Querier
	table     *schema.TableMetadata
	err       error
	sets      []assignment
	where     []Condition
	returning []string
}

// DeleteQuery represents a DELETE query.
type DeleteQuery[T any] struct {
	q     runtime.Querier
	table *schema.TableMetadata
	err   error
	where []Condition
}

type assignment struct {
	column string
	value  any
}

// Condition represents a WHERE condition.
type Condition struct {
	Column   string
	Operator Operator
	Value    any
	Logic    LogicOperator
	Not      bool
	Group    []Condition
}

// OrderBy represents an ORDER BY clause.
type OrderBy struct {
	Column    string
	Direction OrderDirection
}

// OnConflict represents an ON CONFLICT clause for upserts.
type OnConflict struct {
	Columns []string
	Action  ConflictAction
	// Excluded lists columns overwritten from the proposed row (EXCLUDED.col).
	Excluded []string
}

// Operator represents a comparison operator.
type Operator string

const (
	OpEqual              Operator = "="
	OpNotEqual           Operator = "!="
	OpGreaterThan        Operator = ">"
	OpGreaterThanOrEqual Operator = ">="
	OpLessThan           Operator = "<"
	OpLessThanOrEqual    Operator = "<="
	OpIn                 Operator = "IN"
	OpLike               Operator = "LIKE"
	OpILike              Operator = "ILIKE"
	OpIsNull             Operator = "IS NULL"
	OpAny                Operator = "= ANY"
)

// LogicOperator represents a logical operator (AND/OR).
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// OrderDirection represents the sort direction.
type OrderDirection string

const (
	Asc  OrderDirection = "ASC"
	Desc OrderDirection = "DESC"
)

// ConflictAction represents the action for ON CONFLICT.
type ConflictAction string

const (
	DoNothing ConflictAction = "DO NOTHING"
	DoUpdate  ConflictAction = "DO UPDATE SET"
)

// Select creates a new type-safe SELECT query.
// Usage: builder.Select[models.Product](db).Where(builder.Eq("brand", b)).All(ctx)
func Select[T any](q runtime.Querier) *SelectQuery[T] {
	var model T
	table, err := registry.GetOrRegister(model)
	return &SelectQuery[T]{
		q:       q,
		table:   table,
		err:     err,
		columns: []string{"*"},
	}
}

// Insert creates a new type-safe INSERT query.
func Insert[T any](q runtime.Querier) *InsertQuery[T] {
	var model T
	table, err := registry.GetOrRegister(model)
	return &InsertQuery[T]{q: q, table: table, err: err}
}

// Update creates a new type-safe UPDATE query.
func Update[T any](q runtime.Querier) *UpdateQuery[T] {
	var model T
	table, err := registry.GetOrRegister(model)
	return &UpdateQuery[T]{q: q, table: table, err: err}
}

// Delete creates a new type-safe DELETE query.
func Delete[T any](q runtime.Querier) *DeleteQuery[T] {
	var model T
	table, err := registry.GetOrRegister(model)
	return &DeleteQuery[T]{q: q, table: table, err: err}
}
