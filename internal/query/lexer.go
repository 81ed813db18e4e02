package query

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Lexer splits query text into tokens, tracking line and column of each.
type Lexer struct {
	input  []rune
	pos    int
	line   int
	col    int
	tokens []Token
}

// NewLexer creates a lexer for the given query text.
func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input), line: 1, col: 1}
}

// Tokenize scans the whole input. The returned slice always ends with a
// TokenEOF token. Any lexical violation aborts with a *ParseError.
func (l *Lexer) Tokenize() ([]Token, error) {
	l.tokens = nil
	for {
		l.skipSpaceAndComments()
		if l.pos >= len(l.input) {
			break
		}

		start := Pos{Line: l.line, Column: l.col}
		ch := l.input[l.pos]

		switch {
		case ch == '\'' || ch == '"':
			tok, err := l.readString(ch, start)
			if err != nil {
				return nil, err
			}
			l.tokens = append(l.tokens, tok)
		case ch == ',':
			l.emit(TokenComma, ",", start, 1)
		case ch == '=':
			l.emit(TokenEQ, "=", start, 1)
		case ch == '!' && l.peek(1) == '=':
			l.emit(TokenNEQ, "!=", start, 2)
		case ch == '>' && l.peek(1) == '=':
			l.emit(TokenGTE, ">=", start, 2)
		case ch == '<' && l.peek(1) == '=':
			l.emit(TokenLTE, "<=", start, 2)
		case ch == '>':
			l.emit(TokenGT, ">", start, 1)
		case ch == '<':
			l.emit(TokenLT, "<", start, 1)
		case isDigit(ch):
			tok, err := l.readNumber(start)
			if err != nil {
				return nil, err
			}
			l.tokens = append(l.tokens, tok)
		case isIdentStart(ch):
			l.tokens = append(l.tokens, l.readIdentOrKeyword(start))
		default:
			return nil, newParseError(LexicalError, start, "illegal character %q", ch)
		}
	}

	l.tokens = append(l.tokens, Token{Kind: TokenEOF, Line: l.line, Column: l.col})
	return l.tokens, nil
}

func (l *Lexer) emit(kind TokenKind, text string, at Pos, width int) {
	l.tokens = append(l.tokens, Token{Kind: kind, Text: text, Line: at.Line, Column: at.Column})
	l.advance(width)
}

// advance moves n runes forward, keeping line/column in step.
func (l *Lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.input); i++ {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *Lexer) peek(offset int) rune {
	idx := l.pos + offset
	if idx < len(l.input) {
		return l.input[idx]
	}
	return 0
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			l.advance(1)
		case ch == '/' && l.peek(1) == '/':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance(1)
			}
		default:
			return
		}
	}
}

// readString consumes a quoted literal. Backslash escapes the next rune;
// \n and \t produce newline and tab. A quoted YYYY-MM-DD becomes a date.
func (l *Lexer) readString(quote rune, start Pos) (Token, error) {
	l.advance(1)
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == quote:
			l.advance(1)
			text := sb.String()
			if looksLikeDate(text) {
				if _, err := time.Parse(dateLayout, text); err != nil {
					return Token{}, newParseError(LexicalError, start, "invalid date literal '%s'", text)
				}
				return Token{Kind: TokenDate, Text: text, Line: start.Line, Column: start.Column}, nil
			}
			return Token{Kind: TokenString, Text: text, Line: start.Line, Column: start.Column}, nil
		case ch == '\n':
			return Token{}, newParseError(LexicalError, start, "unterminated string")
		case ch == '\\' && l.pos+1 < len(l.input):
			l.advance(1)
			switch esc := l.input[l.pos]; esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(esc)
			}
			l.advance(1)
		default:
			sb.WriteRune(ch)
			l.advance(1)
		}
	}
	return Token{}, newParseError(LexicalError, start, "unterminated string")
}

// readNumber consumes digits with an optional fractional part.
func (l *Lexer) readNumber(start Pos) (Token, error) {
	begin := l.pos
	seenDot := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isDigit(ch) {
			l.advance(1)
			continue
		}
		if ch == '.' && !seenDot && isDigit(l.peek(1)) {
			seenDot = true
			l.advance(1)
			continue
		}
		break
	}

	if l.pos < len(l.input) && (isIdentPart(l.input[l.pos]) || l.input[l.pos] == '.') {
		for l.pos < len(l.input) && (isIdentPart(l.input[l.pos]) || l.input[l.pos] == '.') {
			l.advance(1)
		}
		raw := string(l.input[begin:l.pos])
		if looksLikeDate(raw) {
			return Token{}, newParseError(LexicalError, start, "unquoted date %s; dates must be quoted like '%s'", raw, raw)
		}
		return Token{}, newParseError(LexicalError, start, "malformed number %q", raw)
	}

	return Token{Kind: TokenNumber, Text: string(l.input[begin:l.pos]), Line: start.Line, Column: start.Column}, nil
}

func (l *Lexer) readIdentOrKeyword(start Pos) Token {
	begin := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.advance(1)
	}
	word := string(l.input[begin:l.pos])
	if kind, ok := lookupKeyword(word); ok {
		return Token{Kind: kind, Text: strings.ToUpper(word), Line: start.Line, Column: start.Column}
	}
	return Token{Kind: TokenIdent, Text: word, Line: start.Line, Column: start.Column}
}

// looksLikeDate matches the YYYY-MM-DD shape without validating the calendar.
func looksLikeDate(s string) bool {
	if len(s) != len(dateLayout) {
		return false
	}
	for i, ch := range s {
		if i == 4 || i == 7 {
			if ch != '-' {
				return false
			}
			continue
		}
		if !isDigit(ch) {
			return false
		}
	}
	return true
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch rune) bool { return isIdentStart(ch) || isDigit(ch) || ch == '-' }
