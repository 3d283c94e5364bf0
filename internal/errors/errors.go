/*
Package errors defines the error taxonomy shared by every stage of the
query pipeline.

Each failure carries a Kind naming the stage that rejected the input:
  - TOKENIZE: the lexer met a character sequence it cannot tokenize
  - PARSE: the token stream does not match the grammar
  - PLAN: the statement references unknown names or unsupported shapes
  - SCHEMA: the catalog rejected a definition
  - STORAGE: the key-value layer failed or a keyspace is missing
  - DATA: stored or supplied values do not match the declared schema

Errors wrap an optional cause so callers can still match package
sentinels with the standard errors.Is.
*/
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error by the pipeline stage that produced it.
type Kind int

const (
	KindUnknown Kind = iota
	KindTokenize
	KindParse
	KindPlan
	KindSchema
	KindStorage
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindTokenize:
		return "TOKENIZE"
	case KindParse:
		return "PARSE"
	case KindPlan:
		return "PLAN"
	case KindSchema:
		return "SCHEMA"
	case KindStorage:
		return "STORAGE"
	case KindData:
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

// Error is a classified database error.
type Error struct {
	Kind     Kind
	Message  string
	Position int // 1-based position in the input, 0 when not applicable
	Detail   string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s ERROR: %s", e.Kind, e.Message)
	if e.Position > 0 {
		msg += fmt.Sprintf(" at position %d", e.Position)
	}
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches additional context and returns the error.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// At creates an error of the given kind tied to an input position.
func At(kind Kind, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Position: pos}
}

// Tokenize creates a TOKENIZE error at pos.
func Tokenize(pos int, format string, args ...any) *Error {
	return At(KindTokenize, pos, format, args...)
}

// Parse creates a PARSE error at pos.
func Parse(pos int, format string, args ...any) *Error {
	return At(KindParse, pos, format, args...)
}

// Plan creates a PLAN error.
func Plan(format string, args ...any) *Error {
	return New(KindPlan, format, args...)
}

// Schema creates a SCHEMA error around cause, which may be nil.
func Schema(cause error, format string, args ...any) *Error {
	return Wrap(KindSchema, cause, format, args...)
}

// Storage creates a STORAGE error around cause, which may be nil.
func Storage(cause error, format string, args ...any) *Error {
	return Wrap(KindStorage, cause, format, args...)
}

// Data creates a DATA error.
func Data(format string, args ...any) *Error {
	return New(KindData, format, args...)
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
