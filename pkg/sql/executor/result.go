// pkg/sql/executor/result.go
package executor

import (
	"fmt"
	"strconv"
)

// FieldKind tags a FieldValue
type FieldKind int

const (
	FieldBytes FieldKind = iota
	FieldInt
	FieldText
)

// FieldValue is one typed cell of a result record
type FieldValue struct {
	Kind  FieldKind
	Bytes []byte
	Int   int64
	Text  string
}

// IntField creates an integer field
func IntField(v int64) FieldValue {
	return FieldValue{Kind: FieldInt, Int: v}
}

// TextField creates a text field
func TextField(s string) FieldValue {
	return FieldValue{Kind: FieldText, Text: s}
}

// BytesField creates a raw bytes field
func BytesField(b []byte) FieldValue {
	return FieldValue{Kind: FieldBytes, Bytes: b}
}

// String renders the value for display
func (v FieldValue) String() string {
	switch v.Kind {
	case FieldInt:
		return strconv.FormatInt(v.Int, 10)
	case FieldText:
		return v.Text
	default:
		return fmt.Sprintf("%x", v.Bytes)
	}
}

// Equal reports whether two fields have the same kind and content
func (v FieldValue) Equal(other FieldValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case FieldInt:
		return v.Int == other.Int
	case FieldText:
		return v.Text == other.Text
	default:
		return string(v.Bytes) == string(other.Bytes)
	}
}

// Record is one result row
type Record struct {
	Values []FieldValue
}

// FieldMetadata names an output column and its declared type
type FieldMetadata struct {
	Name string
	Type string // "varchar" or "integer"
}

// ResultMetadata describes the columns of a ResultSet
type ResultMetadata struct {
	Fields []FieldMetadata
}

// Names lists the output column names
func (m ResultMetadata) Names() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// ResultSet holds the rows produced by a SELECT
type ResultSet struct {
	Records  []Record
	Metadata ResultMetadata
}

// Len returns the number of records
func (rs *ResultSet) Len() int {
	return len(rs.Records)
}

// OutcomeKind says what a statement did
type OutcomeKind int

const (
	OutcomeRows OutcomeKind = iota
	OutcomeInserted
	OutcomeDatabaseCreated
	OutcomeTableCreated
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRows:
		return "rows"
	case OutcomeInserted:
		return "inserted"
	case OutcomeDatabaseCreated:
		return "database created"
	case OutcomeTableCreated:
		return "table created"
	default:
		return "unknown"
	}
}

// Outcome is the result of executing one plan: a ResultSet for SELECT, an
// acknowledgment for everything else
type Outcome struct {
	Kind         OutcomeKind
	ResultSet    *ResultSet
	RowsAffected int
}

// Message renders an acknowledgment for display
func (o *Outcome) Message() string {
	switch o.Kind {
	case OutcomeRows:
		return fmt.Sprintf("%d row(s)", o.ResultSet.Len())
	case OutcomeInserted:
		return fmt.Sprintf("%d row(s) inserted", o.RowsAffected)
	default:
		return o.Kind.String()
	}
}
