// pkg/sql/lexer/lexer.go
package lexer

import (
	"strings"

	dberrors "rrrdb/internal/errors"
)

// Lexer tokenizes SQL input
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char
}

// New creates a new Lexer for the given input
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Tokenize splits input into tokens, whitespace included. The trailing EOF
// is not part of the result.
func Tokenize(input string) ([]Token, error) {
	l := New(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.input)
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	if l.atEnd() {
		return Token{Type: EOF, Pos: len(l.input)}, nil
	}

	start := l.pos
	switch l.ch {
	case ' ', '\t', '\n', '\r':
		return l.single(WHITESPACE), nil
	case ',':
		return l.single(COMMA), nil
	case '=':
		return l.single(EQ), nil
	case '+':
		return l.single(PLUS), nil
	case '-':
		return l.single(MINUS), nil
	case '*':
		return l.single(STAR), nil
	case '/':
		return l.single(SLASH), nil
	case '%':
		return l.single(PERCENT), nil
	case '(':
		return l.single(LPAREN), nil
	case ')':
		return l.single(RPAREN), nil
	case '.':
		return l.single(PERIOD), nil
	case ';':
		return l.single(SEMICOLON), nil
	case '!':
		if l.peekChar() == '=' {
			return l.double(NEQ), nil
		}
		return Token{}, dberrors.Tokenize(start+1, "expected '=' after '!'")
	case '<':
		if l.peekChar() == '=' {
			return l.double(LTE), nil
		}
		return l.single(LT), nil
	case '>':
		if l.peekChar() == '=' {
			return l.double(GTE), nil
		}
		return l.single(GT), nil
	case '\'':
		return Token{Type: STRING, Literal: l.readString(), Pos: start}, nil
	}

	if isDigit(l.ch) {
		return Token{Type: NUMBER, Literal: l.readNumber(), Pos: start}, nil
	}

	word := l.readWord()
	return Token{Type: LookupIdent(strings.ToUpper(word)), Literal: word, Pos: start}, nil
}

// single consumes the current character as a token of type t
func (l *Lexer) single(t TokenType) Token {
	tok := Token{Type: t, Literal: string(l.ch), Pos: l.pos}
	l.readChar()
	return tok
}

// double consumes the current and next character as a token of type t
func (l *Lexer) double(t TokenType) Token {
	tok := Token{Type: t, Literal: l.input[l.pos : l.pos+2], Pos: l.pos}
	l.readChar()
	l.readChar()
	return tok
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for !l.atEnd() && isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readString consumes a quoted string without escapes. An unterminated
// string runs to the end of the input.
func (l *Lexer) readString() string {
	l.readChar() // opening quote
	start := l.pos
	for !l.atEnd() && l.ch != '\'' {
		l.readChar()
	}
	s := l.input[start:l.pos]
	if !l.atEnd() {
		l.readChar() // closing quote
	}
	return s
}

// readWord consumes a bare word up to whitespace, a comma, a parenthesis
// or a semicolon
func (l *Lexer) readWord() string {
	start := l.pos
	for !l.atEnd() && !isWordBreak(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isWordBreak(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', ',', '(', ')', ';':
		return true
	}
	return false
}
