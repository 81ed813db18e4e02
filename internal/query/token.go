package query

import "strings"

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenString
	TokenNumber
	TokenDate
	TokenComma

	TokenEQ
	TokenNEQ
	TokenGT
	TokenLT
	TokenGTE
	TokenLTE

	TokenWhere
	TokenShow
	TokenView
	TokenChart
	TokenPeriod
	TokenSize
	TokenAnd
	TokenBetween
)

var tokenNames = map[TokenKind]string{
	TokenEOF:     "end of query",
	TokenIdent:   "identifier",
	TokenString:  "string",
	TokenNumber:  "number",
	TokenDate:    "date",
	TokenComma:   "','",
	TokenEQ:      "'='",
	TokenNEQ:     "'!='",
	TokenGT:      "'>'",
	TokenLT:      "'<'",
	TokenGTE:     "'>='",
	TokenLTE:     "'<='",
	TokenWhere:   "WHERE",
	TokenShow:    "SHOW",
	TokenView:    "VIEW",
	TokenChart:   "CHART",
	TokenPeriod:  "PERIOD",
	TokenSize:    "SIZE",
	TokenAnd:     "AND",
	TokenBetween: "BETWEEN",
}

func (k TokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return "unknown token"
}

// IsClauseKeyword reports whether the token opens a top-level clause.
func (k TokenKind) IsClauseKeyword() bool {
	switch k {
	case TokenWhere, TokenShow, TokenView, TokenChart, TokenPeriod, TokenSize:
		return true
	}
	return false
}

// IsKeyword reports whether the token is a reserved word.
func (k TokenKind) IsKeyword() bool {
	return k >= TokenWhere && k <= TokenBetween
}

// IsComparison reports whether the token is a comparison operator.
func (k TokenKind) IsComparison() bool {
	return k >= TokenEQ && k <= TokenLTE
}

// Token is one lexical unit with its source position. For strings and
// dates Text holds the unquoted, unescaped content.
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int
	Column int
}

// Pos returns the token's position.
func (t Token) Pos() Pos {
	return Pos{Line: t.Line, Column: t.Column}
}

// describe renders the token for error messages.
func (t Token) describe() string {
	switch t.Kind {
	case TokenEOF:
		return "end of query"
	case TokenString, TokenDate:
		return "'" + t.Text + "'"
	case TokenIdent, TokenNumber:
		return "\"" + t.Text + "\""
	}
	return t.Kind.String()
}

var keywords = map[string]TokenKind{
	"WHERE":   TokenWhere,
	"SHOW":    TokenShow,
	"VIEW":    TokenView,
	"CHART":   TokenChart,
	"PERIOD":  TokenPeriod,
	"SIZE":    TokenSize,
	"AND":     TokenAnd,
	"BETWEEN": TokenBetween,
}

func lookupKeyword(word string) (TokenKind, bool) {
	k, ok := keywords[strings.ToUpper(word)]
	return k, ok
}
