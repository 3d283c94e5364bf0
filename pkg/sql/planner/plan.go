// pkg/sql/planner/plan.go
package planner

import (
	"rrrdb/pkg/schema"
	"rrrdb/pkg/sql/parser"
)

// Plan is a resolved, schema-checked statement ready for execution
type Plan interface {
	planNode()
}

// SelectPlan reads one table and projects columns out of it
type SelectPlan struct {
	Database    string
	Plans       []SelectTablePlan
	Projections []ProjectionPlan // ordered by Index
	Filters     []Filter
}

func (*SelectPlan) planNode() {}

// SelectTablePlan names a table and the columns read from it
type SelectTablePlan struct {
	Table   schema.Table
	Columns []string
}

// ProjectionPlan is one output column. Index is the position of the select
// list item it came from; a wildcard expands into several columns sharing
// one index.
type ProjectionPlan struct {
	Table  string
	Column schema.Column
	Index  int
}

// Filter keeps rows whose column equals Expected
type Filter struct {
	Table    string
	Column   string
	Expected parser.Value
}

// InsertPlan writes one row
type InsertPlan struct {
	Database string
	Table    schema.Table
	Values   []RecordValue
}

func (*InsertPlan) planNode() {}

// RecordValue binds a literal to the column it is stored in
type RecordValue struct {
	Column schema.Column
	Value  parser.Value
}

// ID returns the textual primary key of the row
func (p *InsertPlan) ID() string {
	for _, rv := range p.Values {
		if rv.Column.Name == schema.IDColumn {
			return rv.Value.Raw()
		}
	}
	return ""
}

// CreateDatabasePlan acknowledges a database name
type CreateDatabasePlan struct {
	DatabaseName string
}

func (*CreateDatabasePlan) planNode() {}

// CreateTablePlan carries the raw column definitions; types are checked
// when the plan runs
type CreateTablePlan struct {
	DatabaseName string
	TableName    string
	Columns      []parser.ColumnDef
}

func (*CreateTablePlan) planNode() {}
