package query

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by SemanticError.
var (
	ErrUnknownField      = errors.New("unknown field")
	ErrDuplicateClause   = errors.New("duplicate clause")
	ErrInvalidValue      = errors.New("invalid value")
	ErrIncompatibleChart = errors.New("chart requires a chart-capable view")
	ErrIncompleteNode    = errors.New("incomplete node")
)

// Pos is a 1-based line/column location in the query text.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position was set.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

// ErrorKind distinguishes lexical from structural parse failures.
type ErrorKind int

const (
	LexicalError ErrorKind = iota
	SyntaxError
)

func (k ErrorKind) String() string {
	if k == LexicalError {
		return "lexical error"
	}
	return "syntax error"
}

// ParseError is returned for any lexical or syntax violation. No partial
// AST accompanies it.
type ParseError struct {
	Kind   ErrorKind
	Msg    string
	Line   int
	Column int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Line, e.Column, e.Msg)
}

func newParseError(kind ErrorKind, pos Pos, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:   kind,
		Msg:    fmt.Sprintf(format, args...),
		Line:   pos.Line,
		Column: pos.Column,
	}
}

// SemanticError reports a well-formed query that cannot be interpreted:
// duplicate clauses, unknown fields, invalid enum values, type mismatches.
type SemanticError struct {
	Msg    string
	Token  string
	Line   int
	Column int
	Err    error
}

func (e *SemanticError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("semantic error at %d:%d: %s", e.Line, e.Column, e.Msg)
	}
	return "semantic error: " + e.Msg
}

func (e *SemanticError) Unwrap() error {
	return e.Err
}

func newSemanticError(cause error, pos Pos, token, format string, args ...any) *SemanticError {
	return &SemanticError{
		Msg:    fmt.Sprintf(format, args...),
		Token:  token,
		Line:   pos.Line,
		Column: pos.Column,
		Err:    cause,
	}
}
