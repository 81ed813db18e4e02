package query

// NodeKind identifies the concrete type of an AST node.
type NodeKind int

const (
	KindQuery NodeKind = iota
	KindWhere
	KindShow
	KindView
	KindChart
	KindPeriod
	KindSize
	KindCondition
	KindLiteral
	KindIdentifier
	KindDateRange
)

var nodeKindNames = [...]string{
	KindQuery:      "Query",
	KindWhere:      "Where",
	KindShow:       "Show",
	KindView:       "View",
	KindChart:      "Chart",
	KindPeriod:     "Period",
	KindSize:       "Size",
	KindCondition:  "Condition",
	KindLiteral:    "Literal",
	KindIdentifier: "Identifier",
	KindDateRange:  "DateRange",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "Unknown"
}

// Node is any element of the syntax tree. Trees are never mutated after
// Parse returns, so they may be shared between goroutines.
type Node interface {
	Kind() NodeKind
	Pos() Pos
}

// Clause is a top-level directive. The set is closed.
type Clause interface {
	Node
	clauseNode()
}

// Expr is the right-hand side of a condition. The set is closed.
type Expr interface {
	Node
	exprNode()
}

// Query is the root node.
type Query struct {
	Clauses []Clause
}

func (*Query) Kind() NodeKind { return KindQuery }

func (q *Query) Pos() Pos {
	if len(q.Clauses) > 0 {
		return q.Clauses[0].Pos()
	}
	return Pos{Line: 1, Column: 1}
}

// Where holds conditions that are implicitly ANDed.
type Where struct {
	Conditions []*Condition
	At         Pos
}

// Show lists the output columns.
type Show struct {
	Fields []*Identifier
	At     Pos
}

// View selects the presentation mode.
type View struct {
	Value   string
	ValueAt Pos
	At      Pos
}

// Chart selects the chart type.
type Chart struct {
	Value   string
	ValueAt Pos
	At      Pos
}

// Period selects the reporting window.
type Period struct {
	Value   string
	ValueAt Pos
	At      Pos
}

// Size selects output density.
type Size struct {
	Value   string
	ValueAt Pos
	At      Pos
}

func (*Where) Kind() NodeKind  { return KindWhere }
func (*Show) Kind() NodeKind   { return KindShow }
func (*View) Kind() NodeKind   { return KindView }
func (*Chart) Kind() NodeKind  { return KindChart }
func (*Period) Kind() NodeKind { return KindPeriod }
func (*Size) Kind() NodeKind   { return KindSize }

func (c *Where) Pos() Pos  { return c.At }
func (c *Show) Pos() Pos   { return c.At }
func (c *View) Pos() Pos   { return c.At }
func (c *Chart) Pos() Pos  { return c.At }
func (c *Period) Pos() Pos { return c.At }
func (c *Size) Pos() Pos   { return c.At }

func (*Where) clauseNode()  {}
func (*Show) clauseNode()   {}
func (*View) clauseNode()   {}
func (*Chart) clauseNode()  {}
func (*Period) clauseNode() {}
func (*Size) clauseNode()   {}

// Operator is a comparison in a WHERE condition.
type Operator string

const (
	OpEQ      Operator = "="
	OpNEQ     Operator = "!="
	OpGT      Operator = ">"
	OpLT      Operator = "<"
	OpGTE     Operator = ">="
	OpLTE     Operator = "<="
	OpBetween Operator = "BETWEEN"
)

var tokenOperators = map[TokenKind]Operator{
	TokenEQ:      OpEQ,
	TokenNEQ:     OpNEQ,
	TokenGT:      OpGT,
	TokenLT:      OpLT,
	TokenGTE:     OpGTE,
	TokenLTE:     OpLTE,
	TokenBetween: OpBetween,
}

// Condition is `field op value`.
type Condition struct {
	Field *Identifier
	Op    Operator
	Value Expr
	At    Pos
}

func (*Condition) Kind() NodeKind { return KindCondition }
func (c *Condition) Pos() Pos     { return c.At }

// LiteralKind tags a literal's lexical type.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralDate
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralNumber:
		return "number"
	case LiteralDate:
		return "date"
	}
	return "string"
}

// Literal keeps the raw text; typed resolution happens in Interpret.
type Literal struct {
	LitKind LiteralKind
	Raw     string
	At      Pos
}

// Identifier is a bare name.
type Identifier struct {
	Name string
	At   Pos
}

// DateRange is the `lo AND hi` operand of BETWEEN.
type DateRange struct {
	Start *Literal
	End   *Literal
	At    Pos
}

func (*Literal) Kind() NodeKind    { return KindLiteral }
func (*Identifier) Kind() NodeKind { return KindIdentifier }
func (*DateRange) Kind() NodeKind  { return KindDateRange }

func (l *Literal) Pos() Pos    { return l.At }
func (i *Identifier) Pos() Pos { return i.At }
func (r *DateRange) Pos() Pos  { return r.At }

func (*Literal) exprNode()    {}
func (*Identifier) exprNode() {}
func (*DateRange) exprNode()  {}
