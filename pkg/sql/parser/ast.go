// pkg/sql/parser/ast.go
package parser

import (
	"fmt"
	"strings"
)

// Statement is the interface for all SQL statements
type Statement interface {
	statementNode()
}

// Expression is the interface for all expressions
type Expression interface {
	expressionNode()
	String() string
}

// Query is the body of a SELECT statement
type Query struct {
	Projections []Projection
	Froms       []string
	Predicate   Expression // nil without WHERE
}

// Projection is one item of the select list: either * or an expression
type Projection struct {
	Wildcard bool
	Expr     Expression
}

func (p Projection) String() string {
	if p.Wildcard {
		return "*"
	}
	return p.Expr.String()
}

// SelectStmt represents a SELECT statement
type SelectStmt struct {
	Query
}

func (*SelectStmt) statementNode() {}

// InsertStmt represents INSERT INTO table VALUES (...)
type InsertStmt struct {
	TableName string
	Values    []Value
}

func (*InsertStmt) statementNode() {}

// CreateDatabaseStmt represents CREATE DATABASE name
type CreateDatabaseStmt struct {
	Name string
}

func (*CreateDatabaseStmt) statementNode() {}

// ColumnDef is a column definition as written: the type is still raw text
type ColumnDef struct {
	Name string
	Type string
}

// CreateTableStmt represents CREATE TABLE name (col type, ...). It belongs
// to the database the parser was created for.
type CreateTableStmt struct {
	DatabaseName string
	TableName    string
	Columns      []ColumnDef
}

func (*CreateTableStmt) statementNode() {}

// Ident references a column by name
type Ident struct {
	Name string
}

func (*Ident) expressionNode()  {}
func (i *Ident) String() string { return i.Name }

// Literal wraps a constant value
type Literal struct {
	Value Value
}

func (*Literal) expressionNode()  {}
func (l *Literal) String() string { return l.Value.String() }

// Operator is a binary operator
type Operator int

const (
	OpEq Operator = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
)

func (o Operator) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	default:
		return fmt.Sprintf("Operator(%d)", int(o))
	}
}

// BinaryExpr represents left op right
type BinaryExpr struct {
	Left  Expression
	Right Expression
	Op    Operator
}

func (*BinaryExpr) expressionNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// ValueKind tags a literal value
type ValueKind int

const (
	ValueNumber ValueKind = iota
	ValueQuotedString
	ValueBoolean
	ValueNull
)

// Value is a literal. Numbers keep their source text.
type Value struct {
	Kind ValueKind
	Text string
	Bool bool
}

// NumberValue creates a number literal from its digits
func NumberValue(text string) Value {
	return Value{Kind: ValueNumber, Text: text}
}

// StringValue creates a quoted string literal
func StringValue(text string) Value {
	return Value{Kind: ValueQuotedString, Text: text}
}

// BooleanValue creates a boolean literal
func BooleanValue(b bool) Value {
	return Value{Kind: ValueBoolean, Bool: b}
}

// NullValue creates the NULL literal
func NullValue() Value {
	return Value{Kind: ValueNull}
}

// Raw returns the value's unquoted textual form, the form rows are stored in
func (v Value) Raw() string {
	switch v.Kind {
	case ValueBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValueNull:
		return ""
	default:
		return v.Text
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueQuotedString:
		return "'" + v.Text + "'"
	case ValueBoolean:
		return strings.ToUpper(v.Raw())
	case ValueNull:
		return "NULL"
	default:
		return v.Text
	}
}
