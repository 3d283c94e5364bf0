// pkg/sql/parser/parser.go
package parser

import (
	"strings"

	dberrors "rrrdb/internal/errors"
	"rrrdb/pkg/sql/lexer"
)

// Parser turns a token stream into a single Statement. Whitespace tokens
// are skipped; there is no error recovery.
type Parser struct {
	database string
	tokens   []lexer.Token
	index    int
}

// New creates a parser over tokens. CREATE TABLE statements are bound to
// database.
func New(database string, tokens []lexer.Token) *Parser {
	return &Parser{database: database, tokens: tokens}
}

// Parse tokenizes and parses sql in one step
func Parse(database, sql string) (Statement, error) {
	tokens, err := lexer.Tokenize(sql)
	if err != nil {
		return nil, err
	}
	return New(database, tokens).Parse()
}

// nextToken consumes and returns the next non-whitespace token with its
// 1-based position in the token stream. Past the end it returns EOF.
func (p *Parser) nextToken() (lexer.Token, int) {
	for p.index < len(p.tokens) {
		tok := p.tokens[p.index]
		p.index++
		if tok.Type != lexer.WHITESPACE {
			return tok, p.index
		}
	}
	return lexer.Token{Type: lexer.EOF}, len(p.tokens) + 1
}

// peekToken returns the next non-whitespace token without consuming it
func (p *Parser) peekToken() lexer.Token {
	saved := p.index
	tok, _ := p.nextToken()
	p.index = saved
	return tok
}

// peekIs consumes the next token if it has type t
func (p *Parser) peekIs(t lexer.TokenType) bool {
	if p.peekToken().Type == t {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the next token and fails unless it has type t
func (p *Parser) expect(t lexer.TokenType, what string) (lexer.Token, error) {
	tok, pos := p.nextToken()
	if tok.Type != t {
		return tok, unexpected(tok, pos, what)
	}
	return tok, nil
}

func unexpected(tok lexer.Token, pos int, expected string) error {
	return dberrors.Parse(pos, "unexpected token %s, expected %s", tok, expected)
}

// Parse parses exactly one statement, optionally terminated by ';'
func (p *Parser) Parse() (Statement, error) {
	tok, pos := p.nextToken()

	var (
		stmt Statement
		err  error
	)
	switch tok.Type {
	case lexer.SELECT:
		stmt, err = p.parseSelect()
	case lexer.INSERT:
		stmt, err = p.parseInsert()
	case lexer.CREATE:
		stmt, err = p.parseCreate()
	default:
		return nil, unexpected(tok, pos, "SELECT, INSERT or CREATE")
	}
	if err != nil {
		return nil, err
	}

	p.peekIs(lexer.SEMICOLON)
	if tok, pos := p.nextToken(); tok.Type != lexer.EOF {
		return nil, unexpected(tok, pos, "end of statement")
	}
	return stmt, nil
}

func (p *Parser) parseSelect() (*SelectStmt, error) {
	stmt := &SelectStmt{}

	for {
		tok, pos := p.nextToken()
		var proj Projection
		switch tok.Type {
		case lexer.STAR:
			proj.Wildcard = true
		case lexer.NUMBER, lexer.STRING, lexer.WORD:
			proj.Expr = leaf(tok)
		default:
			return nil, unexpected(tok, pos, "*, a literal or a column name")
		}
		stmt.Projections = append(stmt.Projections, proj)

		if !p.peekIs(lexer.COMMA) {
			break
		}
	}

	if p.peekIs(lexer.FROM) {
		tok, err := p.expect(lexer.WORD, "table name")
		if err != nil {
			return nil, err
		}
		stmt.Froms = append(stmt.Froms, tok.Literal)
	}

	if p.peekIs(lexer.WHERE) {
		pred, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Predicate = pred
	}

	return stmt, nil
}

// parseExpression builds an expression without precedence: each comparison
// operator combines everything parsed so far with the next leaf.
func (p *Parser) parseExpression() (Expression, error) {
	var left Expression

	for {
		tok := p.peekToken()
		if tok.Type == lexer.EOF || tok.Type == lexer.SEMICOLON {
			break
		}
		tok, pos := p.nextToken()

		switch tok.Type {
		case lexer.NUMBER, lexer.STRING, lexer.WORD:
			if left != nil {
				if word := strings.ToUpper(tok.Literal); tok.Type == lexer.WORD && (word == "AND" || word == "OR") {
					return nil, dberrors.Parse(pos, "compound predicates (%s) are not supported", word)
				}
				return nil, unexpected(tok, pos, "a comparison operator")
			}
			left = leaf(tok)

		case lexer.EQ, lexer.NEQ, lexer.LT, lexer.LTE, lexer.GT, lexer.GTE:
			if left == nil {
				return nil, dberrors.Parse(pos, "operator %s has no left operand", tok.Type)
			}
			rtok, rpos := p.nextToken()
			if rtok.Type != lexer.NUMBER && rtok.Type != lexer.STRING && rtok.Type != lexer.WORD {
				return nil, unexpected(rtok, rpos, "a literal or a column name")
			}
			left = &BinaryExpr{Left: left, Right: leaf(rtok), Op: operators[tok.Type]}

		default:
			return nil, unexpected(tok, pos, "a literal, a column name or an operator")
		}
	}

	if left == nil {
		tok, pos := p.nextToken()
		return nil, unexpected(tok, pos, "a WHERE condition")
	}
	return left, nil
}

var operators = map[lexer.TokenType]Operator{
	lexer.EQ:  OpEq,
	lexer.NEQ: OpNeq,
	lexer.LT:  OpLt,
	lexer.LTE: OpLte,
	lexer.GT:  OpGt,
	lexer.GTE: OpGte,
}

// leaf converts a literal or word token into an expression
func leaf(tok lexer.Token) Expression {
	switch tok.Type {
	case lexer.NUMBER:
		return &Literal{Value: NumberValue(tok.Literal)}
	case lexer.STRING:
		return &Literal{Value: StringValue(tok.Literal)}
	default:
		return &Ident{Name: tok.Literal}
	}
}

func (p *Parser) parseInsert() (*InsertStmt, error) {
	if _, err := p.expect(lexer.INTO, "INTO"); err != nil {
		return nil, err
	}
	table, err := p.expect(lexer.WORD, "table name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.VALUES, "VALUES"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN, "("); err != nil {
		return nil, err
	}

	stmt := &InsertStmt{TableName: table.Literal}
	for {
		tok, pos := p.nextToken()
		switch tok.Type {
		case lexer.NUMBER:
			stmt.Values = append(stmt.Values, NumberValue(tok.Literal))
		case lexer.STRING:
			stmt.Values = append(stmt.Values, StringValue(tok.Literal))
		default:
			return nil, unexpected(tok, pos, "a number or a quoted string")
		}

		if !p.peekIs(lexer.COMMA) {
			break
		}
	}

	if _, err := p.expect(lexer.RPAREN, ")"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseCreate() (Statement, error) {
	tok, pos := p.nextToken()
	switch tok.Type {
	case lexer.DATABASE:
		name, err := p.expect(lexer.WORD, "database name")
		if err != nil {
			return nil, err
		}
		return &CreateDatabaseStmt{Name: name.Literal}, nil
	case lexer.TABLE:
		return p.parseCreateTable()
	default:
		return nil, unexpected(tok, pos, "DATABASE or TABLE")
	}
}

func (p *Parser) parseCreateTable() (*CreateTableStmt, error) {
	name, err := p.expect(lexer.WORD, "table name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN, "("); err != nil {
		return nil, err
	}

	stmt := &CreateTableStmt{DatabaseName: p.database, TableName: name.Literal}
	for {
		col, err := p.expect(lexer.WORD, "column name")
		if err != nil {
			return nil, err
		}
		typ, err := p.expect(lexer.WORD, "column type")
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, ColumnDef{Name: col.Literal, Type: typ.Literal})

		if !p.peekIs(lexer.COMMA) {
			break
		}
	}

	if _, err := p.expect(lexer.RPAREN, ")"); err != nil {
		return nil, err
	}
	return stmt, nil
}
