// pkg/sql/planner/planner.go
package planner

import (
	"fmt"
	"sort"
	"strconv"

	dberrors "rrrdb/internal/errors"
	"rrrdb/pkg/schema"
	"rrrdb/pkg/sql/parser"
)

// Catalog is the read side of the schema store
type Catalog interface {
	FindSchema(database string) (*schema.Database, error)
}

// Planner resolves statements against the catalog
type Planner struct {
	catalog Catalog
}

// New creates a planner reading schemas from catalog
func New(catalog Catalog) *Planner {
	return &Planner{catalog: catalog}
}

// Plan turns stmt into an executable plan for database
func (p *Planner) Plan(database string, stmt parser.Statement) (Plan, error) {
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		return p.planSelect(database, s)
	case *parser.InsertStmt:
		return p.planInsert(database, s)
	case *parser.CreateDatabaseStmt:
		return &CreateDatabasePlan{DatabaseName: s.Name}, nil
	case *parser.CreateTableStmt:
		return &CreateTablePlan{
			DatabaseName: s.DatabaseName,
			TableName:    s.TableName,
			Columns:      s.Columns,
		}, nil
	default:
		return nil, dberrors.Plan("unsupported statement %T", stmt)
	}
}

func (p *Planner) loadDatabase(database string) (*schema.Database, error) {
	db, err := p.catalog.FindSchema(database)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, dberrors.Plan("database %s not found", database)
	}
	return db, nil
}

func (p *Planner) planSelect(database string, stmt *parser.SelectStmt) (*SelectPlan, error) {
	db, err := p.loadDatabase(database)
	if err != nil {
		return nil, err
	}

	tables := make([]*schema.Table, 0, len(stmt.Froms))
	for _, name := range stmt.Froms {
		t := db.Table(name)
		if t == nil {
			return nil, dberrors.Plan("table %s not found in database %s", name, database)
		}
		tables = append(tables, t)
	}

	plan := &SelectPlan{Database: database}

	for i, proj := range stmt.Projections {
		if proj.Wildcard {
			if len(tables) != 1 {
				return nil, dberrors.Plan("* requires exactly one table in FROM, got %d", len(tables))
			}
			t := tables[0]
			columns := make([]string, 0, len(t.Columns))
			for _, col := range t.Columns {
				plan.Projections = append(plan.Projections, ProjectionPlan{Table: t.Name, Column: col, Index: i})
				columns = append(columns, col.Name)
			}
			plan.Plans = append(plan.Plans, SelectTablePlan{Table: *t, Columns: columns})
			continue
		}

		ident, ok := proj.Expr.(*parser.Ident)
		if !ok {
			return nil, dberrors.Plan("unsupported projection %s", proj)
		}
		t, col, err := resolveColumn(tables, ident.Name)
		if err != nil {
			return nil, err
		}
		plan.Projections = append(plan.Projections, ProjectionPlan{Table: t.Name, Column: *col, Index: i})
		plan.Plans = append(plan.Plans, SelectTablePlan{Table: *t, Columns: []string{col.Name}})
	}

	sort.SliceStable(plan.Projections, func(a, b int) bool {
		return plan.Projections[a].Index < plan.Projections[b].Index
	})

	if stmt.Predicate != nil {
		filter, err := planFilter(tables, stmt.Predicate)
		if err != nil {
			return nil, err
		}
		plan.Filters = append(plan.Filters, filter)
	}

	return plan, nil
}

// resolveColumn finds the first table in FROM order that owns column
func resolveColumn(tables []*schema.Table, column string) (*schema.Table, *schema.Column, error) {
	for _, t := range tables {
		if col := t.Column(column); col != nil {
			return t, col, nil
		}
	}
	return nil, nil, dberrors.Plan("column %s not found", column)
}

// planFilter accepts only column = literal, in either order
func planFilter(tables []*schema.Table, pred parser.Expression) (Filter, error) {
	bin, ok := pred.(*parser.BinaryExpr)
	if !ok {
		return Filter{}, dberrors.Plan("unsupported predicate %s", pred)
	}
	if bin.Op != parser.OpEq {
		return Filter{}, dberrors.Plan("unsupported operator %s in predicate %s", bin.Op, pred)
	}

	ident, lit := identAndLiteral(bin.Left, bin.Right)
	if ident == nil {
		ident, lit = identAndLiteral(bin.Right, bin.Left)
	}
	if ident == nil {
		return Filter{}, dberrors.Plan("predicate %s must compare a column with a literal", pred)
	}

	t, col, err := resolveColumn(tables, ident.Name)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Table: t.Name, Column: col.Name, Expected: lit.Value}, nil
}

func identAndLiteral(a, b parser.Expression) (*parser.Ident, *parser.Literal) {
	ident, ok := a.(*parser.Ident)
	if !ok {
		return nil, nil
	}
	lit, ok := b.(*parser.Literal)
	if !ok {
		return nil, nil
	}
	return ident, lit
}

func (p *Planner) planInsert(database string, stmt *parser.InsertStmt) (*InsertPlan, error) {
	db, err := p.loadDatabase(database)
	if err != nil {
		return nil, err
	}
	t := db.Table(stmt.TableName)
	if t == nil {
		return nil, dberrors.Plan("table %s not found in database %s", stmt.TableName, database)
	}

	if len(stmt.Values) != len(t.Columns) {
		return nil, dberrors.Data("table %s has %d columns but %d values were supplied",
			t.Name, len(t.Columns), len(stmt.Values))
	}
	if t.Column(schema.IDColumn) == nil {
		return nil, dberrors.Data("table %s has no %s column to key the row", t.Name, schema.IDColumn)
	}

	plan := &InsertPlan{Database: database, Table: *t}
	for i, col := range t.Columns {
		v := stmt.Values[i]
		if col.ColumnType == schema.Integer && v.Kind != parser.ValueNumber {
			return nil, dberrors.Data("column %s is %s but got %s", col.Name, col.ColumnType, v).
				WithDetail(fmt.Sprintf("table %s", t.Name))
		}
		// Stored integers must decode again on every scan
		if col.ColumnType == schema.Integer {
			if _, err := strconv.ParseInt(v.Text, 10, 64); err != nil {
				return nil, dberrors.Data("column %s: %s is out of integer range", col.Name, v).
					WithDetail(fmt.Sprintf("table %s", t.Name))
			}
		}
		plan.Values = append(plan.Values, RecordValue{Column: col, Value: v})
	}
	return plan, nil
}
