package migration

import (
	"fmt"
	"strings"

	"github.com/nikixstore/storefront/pkg/schema"
)

// quoteIdent quotes a PostgreSQL identifier.
func quoteIdent(name string) string {
	return fmt.Sprintf(`"%s"`, name)
}

// PlannerOptions configures migration generation behavior.
type PlannerOptions struct {
	// IfNotExists adds IF NOT EXISTS to CREATE statements.
	IfNotExists bool
}

// Planner generates SQL statements from table metadata.
type Planner struct {
	options PlannerOptions
}

// NewPlanner creates a new migration planner with default options.
func NewPlanner() *Planner {
	return &Planner{options: PlannerOptions{IfNotExists: true}}
}

// NewPlannerWithOptions creates a new migration planner with custom options.
func NewPlannerWithOptions(opts PlannerOptions) *Planner {
	return &Planner{options: opts}
}

// Plan builds a single migration creating every table in order.
// The down migration drops them in reverse order.
func (p *Planner) Plan(version, name string, tables []*schema.TableMetadata) Migration {
	var up, down []string
	for _, table := range tables {
		up = append(up, p.generateCreateTable(table))
		for _, idx := range table.Indexes {
			up = append(up, p.generateCreateIndex(table.Name, idx))
		}
	}
	for i := len(tables) - 1; i >= 0; i-- {
		down = append(down, p.generateDropTable(tables[i].Name))
	}
	return Migration{
		Version: version,
		Name:    name,
		UpSQL:   strings.Join(up, "\n\n") + "\n",
		DownSQL: strings.Join(down, "\n") + "\n",
	}
}

// generateCreateTable generates a CREATE TABLE statement.
func (p *Planner) generateCreateTable(table *schema.TableMetadata) string {
	var parts []string

	var singlePKColumn string
	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) == 1 {
		singlePKColumn = table.PrimaryKey.Columns[0]
	}

	for _, col := range table.Columns {
		colDef := p.generateColumnDefinition(col)
		if col.Name == singlePKColumn {
			colDef += " PRIMARY KEY"
		}
		parts = append(parts, "    "+colDef)
	}

	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) > 1 {
		pkCols := strings.Join(table.PrimaryKey.Columns, ", ")
		parts = append(parts, fmt.Sprintf("    CONSTRAINT %s PRIMARY KEY (%s)", table.PrimaryKey.Name, pkCols))
	}

	create := "CREATE TABLE"
	if p.options.IfNotExists {
		create += " IF NOT EXISTS"
	}
	return fmt.Sprintf("%s %s (\n%s\n);", create, table.Name, strings.Join(parts, ",\n"))
}

// generateColumnDefinition generates a column definition.
func (p *Planner) generateColumnDefinition(col schema.ColumnMetadata) string {
	parts := []string{col.Name, col.SQLType}

	// serial types imply NOT NULL and their own sequence default
	if col.AutoIncrement {
		return strings.Join(parts, " ")
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil {
		parts = append(parts, "DEFAULT", *col.Default)
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	return strings.Join(parts, " ")
}

// generateCreateIndex generates a CREATE INDEX statement.
func (p *Planner) generateCreateIndex(tableName string, idx schema.IndexMetadata) string {
	parts := []string{"CREATE INDEX"}
	if idx.Unique {
		parts = []string{"CREATE UNIQUE INDEX"}
	}
	if p.options.IfNotExists {
		parts = append(parts, "IF NOT EXISTS")
	}
	parts = append(parts, idx.Name, "ON", tableName, fmt.Sprintf("(%s)", strings.Join(idx.Columns, ", ")))
	return strings.Join(parts, " ") + ";"
}

// generateDropTable generates a DROP TABLE statement.
func (p *Planner) generateDropTable(tableName string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", quoteIdent(tableName))
}
