// pkg/schema/schema.go
package schema

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	dberrors "rrrdb/internal/errors"
)

// IDColumn is the implicit primary key every row is stored under
const IDColumn = "id"

var (
	ErrTableExists       = errors.New("table already exists")
	ErrUnknownColumnType = errors.New("unknown column type")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrNoColumns         = errors.New("table has no columns")
	ErrKeyspaceTaken     = errors.New("keyspace belongs to another table")
)

// ColumnType is the declared type of a column
type ColumnType int

const (
	Varchar ColumnType = iota
	Integer
)

// ParseColumnType maps a type name onto a ColumnType. Matching is
// case-insensitive: string and varchar mean Varchar, int and integer mean
// Integer.
func ParseColumnType(name string) (ColumnType, error) {
	switch strings.ToLower(name) {
	case "string", "varchar":
		return Varchar, nil
	case "int", "integer":
		return Integer, nil
	default:
		return 0, dberrors.Schema(ErrUnknownColumnType, "column type %q", name)
	}
}

// String returns the lowercase type name used in result metadata
func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "integer"
	default:
		return "varchar"
	}
}

// MarshalJSON encodes the type as "Varchar" or "Integer"
func (t ColumnType) MarshalJSON() ([]byte, error) {
	switch t {
	case Varchar:
		return []byte(`"Varchar"`), nil
	case Integer:
		return []byte(`"Integer"`), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownColumnType, int(t))
	}
}

// UnmarshalJSON accepts any spelling ParseColumnType accepts
func (t *ColumnType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseColumnType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Column is a named, typed column
type Column struct {
	Name       string     `json:"name"`
	ColumnType ColumnType `json:"column_type"`
}

// Table is a named, ordered list of columns
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column returns the named column, or nil
func (t *Table) Column(name string) *Column {
	if i := t.ColumnIndex(name); i >= 0 {
		return &t.Columns[i]
	}
	return nil
}

// ColumnIndex returns the position of the named column, or -1
func (t *Table) ColumnIndex(name string) int {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that the table has columns and no name repeats
func (t *Table) Validate() error {
	if len(t.Columns) == 0 {
		return dberrors.Schema(ErrNoColumns, "table %s", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c.Name] {
			return dberrors.Schema(ErrDuplicateColumn, "table %s column %s", t.Name, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Database is one catalog document: a database and its tables
type Database struct {
	Name   string  `json:"name"`
	Tables []Table `json:"tables"`
}

// Clone returns a deep copy of the document
func (d *Database) Clone() *Database {
	out := &Database{Name: d.Name, Tables: make([]Table, len(d.Tables))}
	for i, t := range d.Tables {
		out.Tables[i] = Table{Name: t.Name, Columns: append([]Column(nil), t.Columns...)}
	}
	return out
}

// NewDatabase creates an empty catalog document
func NewDatabase(name string) *Database {
	return &Database{Name: name, Tables: []Table{}}
}

// Table returns the named table, or nil
func (d *Database) Table(name string) *Table {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i]
		}
	}
	return nil
}

// TableNames lists the tables in declaration order
func (d *Database) TableNames() []string {
	names := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		names[i] = t.Name
	}
	return names
}
