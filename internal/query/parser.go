package query

import "strings"

// Parser builds an AST from a token stream.
type Parser struct {
	tokens []Token
	pos    int
}

// Parse tokenizes and parses text. On failure the error is a *ParseError
// for lexical and syntax problems or a *SemanticError for a repeated
// clause; no partial tree is returned.
func Parse(text string) (*Query, error) {
	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if err := checkUniqueClauses(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *Parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Kind: TokenEOF}
}

func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(kind TokenKind, context string) (Token, error) {
	tok := p.current()
	if tok.Kind != kind {
		return tok, p.unexpected(tok, "expected %s %s", kind, context)
	}
	p.pos++
	return tok, nil
}

func (p *Parser) unexpected(tok Token, format string, args ...any) error {
	err := newParseError(SyntaxError, tok.Pos(), format, args...)
	err.Msg += ", found " + tok.describe()
	return err
}

func (p *Parser) parseQuery() (*Query, error) {
	q := &Query{}
	for p.current().Kind != TokenEOF {
		clause, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, clause)
	}
	return q, nil
}

func (p *Parser) parseClause() (Clause, error) {
	tok := p.current()
	switch tok.Kind {
	case TokenWhere:
		return p.parseWhere()
	case TokenShow:
		return p.parseShow()
	case TokenView:
		p.advance()
		v, at, err := p.parseClauseValue("VIEW")
		if err != nil {
			return nil, err
		}
		return &View{Value: v, ValueAt: at, At: tok.Pos()}, nil
	case TokenChart:
		p.advance()
		v, at, err := p.parseClauseValue("CHART")
		if err != nil {
			return nil, err
		}
		return &Chart{Value: v, ValueAt: at, At: tok.Pos()}, nil
	case TokenPeriod:
		p.advance()
		v, at, err := p.parseClauseValue("PERIOD")
		if err != nil {
			return nil, err
		}
		return &Period{Value: v, ValueAt: at, At: tok.Pos()}, nil
	case TokenSize:
		p.advance()
		v, at, err := p.parseClauseValue("SIZE")
		if err != nil {
			return nil, err
		}
		return &Size{Value: v, ValueAt: at, At: tok.Pos()}, nil
	}
	return nil, p.unexpected(tok, "expected a clause keyword (WHERE, SHOW, VIEW, CHART, PERIOD, SIZE)")
}

// parseClauseValue reads the single operand of VIEW/CHART/PERIOD/SIZE.
// The operand is mandatory, so a keyword here is a value: in
// "VIEW chart CHART trend" the first chart is the view.
func (p *Parser) parseClauseValue(clause string) (string, Pos, error) {
	tok := p.current()
	switch {
	case tok.Kind == TokenIdent, tok.Kind == TokenString:
		p.advance()
		return tok.Text, tok.Pos(), nil
	case tok.Kind.IsKeyword():
		p.advance()
		return strings.ToLower(tok.Text), tok.Pos(), nil
	}
	return "", Pos{}, p.unexpected(tok, "expected a value after %s", clause)
}

func (p *Parser) parseWhere() (*Where, error) {
	kw := p.advance()
	w := &Where{At: kw.Pos()}

	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	w.Conditions = append(w.Conditions, cond)

	for p.current().Kind == TokenAnd {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		w.Conditions = append(w.Conditions, cond)
	}
	return w, nil
}

func (p *Parser) parseShow() (*Show, error) {
	kw := p.advance()
	s := &Show{At: kw.Pos()}
	for {
		tok, err := p.expect(TokenIdent, "field name in SHOW")
		if err != nil {
			return nil, err
		}
		s.Fields = append(s.Fields, &Identifier{Name: tok.Text, At: tok.Pos()})
		if p.current().Kind != TokenComma {
			return s, nil
		}
		p.advance()
	}
}

func (p *Parser) parseCondition() (*Condition, error) {
	fieldTok, err := p.expect(TokenIdent, "field name in condition")
	if err != nil {
		return nil, err
	}
	field := &Identifier{Name: fieldTok.Text, At: fieldTok.Pos()}

	opTok := p.current()
	op, ok := tokenOperators[opTok.Kind]
	if !ok {
		return nil, p.unexpected(opTok, "expected an operator after %q", field.Name)
	}
	p.advance()

	cond := &Condition{Field: field, Op: op, At: fieldTok.Pos()}
	if op == OpBetween {
		r, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		cond.Value = r
		return cond, nil
	}

	val, err := p.parseExpr(field.Name)
	if err != nil {
		return nil, err
	}
	cond.Value = val
	return cond, nil
}

func (p *Parser) parseExpr(field string) (Expr, error) {
	tok := p.current()
	if tok.Kind == TokenIdent {
		p.advance()
		return &Identifier{Name: tok.Text, At: tok.Pos()}, nil
	}
	if lit, ok := p.tryLiteral(); ok {
		return lit, nil
	}
	return nil, p.unexpected(tok, "expected a value for %q", field)
}

func (p *Parser) parseRange() (*DateRange, error) {
	startTok := p.current()
	start, ok := p.tryLiteral()
	if !ok {
		return nil, p.unexpected(startTok, "expected a literal after BETWEEN")
	}
	if _, err := p.expect(TokenAnd, "between range bounds"); err != nil {
		return nil, err
	}
	endTok := p.current()
	end, ok := p.tryLiteral()
	if !ok {
		return nil, p.unexpected(endTok, "expected a literal to close BETWEEN range")
	}
	return &DateRange{Start: start, End: end, At: startTok.Pos()}, nil
}

func (p *Parser) tryLiteral() (*Literal, bool) {
	tok := p.current()
	var kind LiteralKind
	switch tok.Kind {
	case TokenString:
		kind = LiteralString
	case TokenNumber:
		kind = LiteralNumber
	case TokenDate:
		kind = LiteralDate
	default:
		return nil, false
	}
	p.advance()
	return &Literal{LitKind: kind, Raw: tok.Text, At: tok.Pos()}, true
}

// checkUniqueClauses enforces that every clause except WHERE appears at
// most once. The error points at the second occurrence.
func checkUniqueClauses(q *Query) error {
	seen := make(map[NodeKind]bool, len(q.Clauses))
	for _, c := range q.Clauses {
		k := c.Kind()
		if k == KindWhere {
			continue
		}
		if seen[k] {
			name := clauseKeyword(k)
			return newSemanticError(ErrDuplicateClause, c.Pos(), name, "duplicate %s clause", name)
		}
		seen[k] = true
	}
	return nil
}

func clauseKeyword(k NodeKind) string {
	switch k {
	case KindWhere:
		return "WHERE"
	case KindShow:
		return "SHOW"
	case KindView:
		return "VIEW"
	case KindChart:
		return "CHART"
	case KindPeriod:
		return "PERIOD"
	case KindSize:
		return "SIZE"
	}
	return k.String()
}
