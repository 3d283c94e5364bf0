// pkg/sql/lexer/token.go
package lexer

import "fmt"

// TokenType represents the type of a lexical token
type TokenType int

const (
	EOF TokenType = iota
	WHITESPACE

	// Literals
	WORD   // column_name, table_name
	NUMBER // 123
	STRING // 'hello'

	// Operators
	EQ      // =
	NEQ     // !=
	LT      // <
	LTE     // <=
	GT      // >
	GTE     // >=
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %

	// Delimiters
	COMMA     // ,
	LPAREN    // (
	RPAREN    // )
	PERIOD    // .
	SEMICOLON // ;

	// Keywords
	keywordStart
	CREATE
	DATABASE
	TABLE
	SELECT
	FROM
	WHERE
	INSERT
	INTO
	VALUES
	keywordEnd
)

var tokenNames = map[TokenType]string{
	EOF:        "EOF",
	WHITESPACE: "WHITESPACE",
	WORD:       "WORD",
	NUMBER:     "NUMBER",
	STRING:     "STRING",
	EQ:         "=",
	NEQ:        "!=",
	LT:         "<",
	LTE:        "<=",
	GT:         ">",
	GTE:        ">=",
	PLUS:       "+",
	MINUS:      "-",
	STAR:       "*",
	SLASH:      "/",
	PERCENT:    "%",
	COMMA:      ",",
	LPAREN:     "(",
	RPAREN:     ")",
	PERIOD:     ".",
	SEMICOLON:  ";",
	CREATE:     "CREATE",
	DATABASE:   "DATABASE",
	TABLE:      "TABLE",
	SELECT:     "SELECT",
	FROM:       "FROM",
	WHERE:      "WHERE",
	INSERT:     "INSERT",
	INTO:       "INTO",
	VALUES:     "VALUES",
}

// String returns the string representation of a token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word
func (t TokenType) IsKeyword() bool {
	return t > keywordStart && t < keywordEnd
}

var keywords = map[string]TokenType{
	"CREATE":   CREATE,
	"DATABASE": DATABASE,
	"TABLE":    TABLE,
	"SELECT":   SELECT,
	"FROM":     FROM,
	"WHERE":    WHERE,
	"INSERT":   INSERT,
	"INTO":     INTO,
	"VALUES":   VALUES,
}

// LookupIdent returns the keyword type for an upper-cased word, or WORD
func LookupIdent(upper string) TokenType {
	if tok, ok := keywords[upper]; ok {
		return tok
	}
	return WORD
}

// WhitespaceKind classifies a whitespace token
type WhitespaceKind int

const (
	Space WhitespaceKind = iota
	Tab
	Newline
)

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset in the input
}

// Whitespace returns the kind of a WHITESPACE token
func (t Token) Whitespace() WhitespaceKind {
	switch t.Literal {
	case "\t":
		return Tab
	case "\n", "\r":
		return Newline
	default:
		return Space
	}
}

// String renders the token for error messages
func (t Token) String() string {
	switch {
	case t.Type == WORD:
		return fmt.Sprintf("Word(%s)", t.Literal)
	case t.Type == NUMBER:
		return fmt.Sprintf("Number(%s)", t.Literal)
	case t.Type == STRING:
		return fmt.Sprintf("'%s'", t.Literal)
	case t.Type.IsKeyword():
		return fmt.Sprintf("Keyword(%s)", t.Type)
	case t.Type == WHITESPACE:
		return fmt.Sprintf("Whitespace(%q)", t.Literal)
	default:
		return t.Type.String()
	}
}
