// pkg/sql/executor/iterator.go
package executor

import (
	"strconv"

	json "github.com/goccy/go-json"

	dberrors "rrrdb/internal/errors"
	"rrrdb/pkg/schema"
	"rrrdb/pkg/sql/parser"
	"rrrdb/pkg/sql/planner"
	"rrrdb/pkg/storage"
)

// Row maps column names to typed values. Columns missing from the stored
// document are absent.
type Row map[string]FieldValue

// RowIterator is the interface for iterating over rows
type RowIterator interface {
	// Next advances the iterator to the next row. Returns false if no more rows.
	Next() bool

	// Row returns the current row.
	Row() Row

	// Err returns any error that stopped the iteration.
	Err() error

	// Close releases resources.
	Close()
}

// TableScanIterator decodes every stored row of a table in key order
type TableScanIterator struct {
	it    *storage.Iterator
	table schema.Table
	row   Row
	err   error
}

// NewTableScanIterator wraps a storage scan of table
func NewTableScanIterator(it *storage.Iterator, table schema.Table) *TableScanIterator {
	return &TableScanIterator{it: it, table: table}
}

func (s *TableScanIterator) Next() bool {
	if s.err != nil || !s.it.Next() {
		if s.err == nil {
			s.err = s.it.Err()
		}
		return false
	}

	row, err := DecodeRow(s.table, s.it.Key(), s.it.Value())
	if err != nil {
		s.err = err
		return false
	}
	s.row = row
	return true
}

func (s *TableScanIterator) Row() Row   { return s.row }
func (s *TableScanIterator) Err() error { return s.err }
func (s *TableScanIterator) Close()     { s.it.Close() }

// DecodeRow parses a stored {column: text} document and types each field
// by its declared column type
func DecodeRow(table schema.Table, key, data []byte) (Row, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, dberrors.Wrap(dberrors.KindData, err, "row %q of table %s is not a JSON object of strings", key, table.Name)
	}

	row := make(Row, len(table.Columns))
	for _, col := range table.Columns {
		text, ok := raw[col.Name]
		if !ok {
			continue
		}
		switch col.ColumnType {
		case schema.Integer:
			n, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return nil, dberrors.Data("row %q column %s: %q is not an integer", key, col.Name, text)
			}
			row[col.Name] = IntField(n)
		default:
			row[col.Name] = TextField(text)
		}
	}
	return row, nil
}

// FilterIterator keeps rows that satisfy every filter
type FilterIterator struct {
	child   RowIterator
	filters []planner.Filter
	err     error
}

// NewFilterIterator wraps child with equality filters
func NewFilterIterator(child RowIterator, filters []planner.Filter) *FilterIterator {
	return &FilterIterator{child: child, filters: filters}
}

func (f *FilterIterator) Next() bool {
	for f.err == nil && f.child.Next() {
		ok, err := matches(f.child.Row(), f.filters)
		if err != nil {
			f.err = err
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

func (f *FilterIterator) Row() Row { return f.child.Row() }

func (f *FilterIterator) Err() error {
	if f.err != nil {
		return f.err
	}
	return f.child.Err()
}

func (f *FilterIterator) Close() { f.child.Close() }

func matches(row Row, filters []planner.Filter) (bool, error) {
	for _, filter := range filters {
		field, ok := row[filter.Column]
		if !ok {
			return false, nil
		}
		eq, err := equals(field, filter)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// equals compares integers with number literals and text with quoted
// strings. Any other pairing is an error.
func equals(field FieldValue, filter planner.Filter) (bool, error) {
	expected := filter.Expected
	switch {
	case field.Kind == FieldInt && expected.Kind == parser.ValueNumber:
		n, err := strconv.ParseInt(expected.Text, 10, 64)
		if err != nil {
			return false, dberrors.Data("literal %s is out of integer range", expected)
		}
		return field.Int == n, nil
	case field.Kind == FieldText && expected.Kind == parser.ValueQuotedString:
		return field.Text == expected.Text, nil
	default:
		return false, dberrors.Data("cannot compare column %s with %s", filter.Column, expected)
	}
}

// ProjectionIterator shapes rows into records following the projection
// order. Fields missing from a row are left out of its record.
type ProjectionIterator struct {
	child       RowIterator
	projections []planner.ProjectionPlan
	record      Record
}

// NewProjectionIterator wraps child with a projection
func NewProjectionIterator(child RowIterator, projections []planner.ProjectionPlan) *ProjectionIterator {
	return &ProjectionIterator{child: child, projections: projections}
}

func (p *ProjectionIterator) Next() bool {
	if !p.child.Next() {
		return false
	}

	row := p.child.Row()
	values := make([]FieldValue, 0, len(p.projections))
	for _, proj := range p.projections {
		if v, ok := row[proj.Column.Name]; ok {
			values = append(values, v)
		}
	}
	p.record = Record{Values: values}
	return true
}

func (p *ProjectionIterator) Record() Record { return p.record }
func (p *ProjectionIterator) Err() error     { return p.child.Err() }
func (p *ProjectionIterator) Close()         { p.child.Close() }
