package builder

import (
	"context"
	"fmt"
	"strings"
)

// Values sets the values to insert.
func (q *InsertQuery[T]) Values(values ...T) *InsertQuery[T] {
	q.values = append(q.values, values...)
	return q
}

// Returning specifies columns to return after insert.
func (q *InsertQuery[T]) Returning(columns ...string) *InsertQuery[T] {
	q.returning = columns
	return q
}

// OnConflictDoNothing adds ON CONFLICT DO NOTHING clause.
func (q *InsertQuery[T]) OnConflictDoNothing(columns ...string) *InsertQuery[T] {
	q.onConflict = &OnConflict{Columns: columns, Action: DoNothing}
	return q
}

// OnConflictDoUpdate adds ON CONFLICT DO UPDATE clause. Each listed column is
// overwritten with the value proposed for insertion.
func (q *InsertQuery[T]) OnConflictDoUpdate(conflictColumns []string, updateColumns ...string) *InsertQuery[T] {
	q.onConflict = &OnConflict{
		Columns:  conflictColumns,
		Action:   DoUpdate,
		Excluded: updateColumns,
	}
	return q
}

// ToSQL generates the SQL query and arguments.
func (q *InsertQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if len(q.values) == 0 {
		return "", nil, fmt.Errorf("no values to insert")
	}

	rows := make([]map[string]any, len(q.values))
	present := make(map[string]bool)
	for i, value := range q.values {
		cols, vals, err := structToValues(value, q.table, true)
		if err != nil {
			return "", nil, fmt.Errorf("failed to extract values from row %d: %w", i, err)
		}
		rows[i] = make(map[string]any, len(cols))
		for j, col := range cols {
			rows[i][col] = vals[j]
			present[col] = true
		}
	}

	// Union of the columns set by any row, in declaration order. Rows that
	// leave a defaulted column zero get DEFAULT in its slot.
	var columns []string
	for _, col := range q.table.Columns {
		if present[col.Name] {
			columns = append(columns, col.Name)
		}
	}
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("no columns to insert")
	}

	var sql strings.Builder
	var args []any

	sql.WriteString("INSERT INTO ")
	sql.WriteString(q.table.Name)
	sql.WriteString(" (")
	sql.WriteString(strings.Join(columns, ", "))
	sql.WriteString(") VALUES ")

	paramNum := 1
	valueClauses := make([]string, len(rows))
	for i, row := range rows {
		placeholders := make([]string, len(columns))
		for j, col := range columns {
			v, ok := row[col]
			if !ok {
				placeholders[j] = "DEFAULT"
				continue
			}
			placeholders[j] = fmt.Sprintf("$%d", paramNum)
			args = append(args, v)
			paramNum++
		}
		valueClauses[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}
	sql.WriteString(strings.Join(valueClauses, ", "))

	if q.onConflict != nil {
		sql.WriteString(" ON CONFLICT")
		if len(q.onConflict.Columns) > 0 {
			sql.WriteString(" (")
			sql.WriteString(strings.Join(q.onConflict.Columns, ", "))
			sql.WriteString(")")
		}
		sql.WriteString(" ")
		sql.WriteString(string(q.onConflict.Action))
		if q.onConflict.Action == DoUpdate {
			sets := make([]string, len(q.onConflict.Excluded))
			for i, col := range q.onConflict.Excluded {
				sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
			}
			sql.WriteString(" ")
			sql.WriteString(strings.Join(sets, ", "))
		}
	}

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}

	return sql.String(), args, nil
}

// Exec executes the insert query and returns the number of rows affected.
func (q *InsertQuery[T]) Exec(ctx context.Context) (int64, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return 0, err
	}
	return q.q.Exec(ctx, sql, args...)
}

// ExecReturning executes the insert query and returns the inserted rows.
// Every column is returned when Returning was not called.
func (q *InsertQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
	if len(q.returning) == 0 {
		q.returning = []string{"*"}
	}
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	return Raw[T](ctx, q.q, sql, args...)
}
