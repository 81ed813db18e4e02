package query

import "fmt"

// Visitor is called for every node reached by Walk. If Visit returns a nil
// visitor the node's children are skipped.
type Visitor interface {
	Visit(n Node) (w Visitor)
}

// Walk traverses the tree depth-first in source order.
func Walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	if v = v.Visit(n); v == nil {
		return
	}
	for _, child := range children(n) {
		Walk(v, child)
	}
}

type inspector func(Node) bool

func (f inspector) Visit(n Node) Visitor {
	if f(n) {
		return f
	}
	return nil
}

// Inspect calls fn for each node; returning false prunes the subtree.
func Inspect(n Node, fn func(Node) bool) {
	Walk(inspector(fn), n)
}

// FindAll returns every node of type T in source order.
func FindAll[T Node](root Node) []T {
	var out []T
	Inspect(root, func(n Node) bool {
		if t, ok := n.(T); ok {
			out = append(out, t)
		}
		return true
	})
	return out
}

// Stats counts nodes by kind.
func Stats(root Node) map[NodeKind]int {
	counts := make(map[NodeKind]int)
	Inspect(root, func(n Node) bool {
		counts[n.Kind()]++
		return true
	})
	return counts
}

// Validate rejects structurally incomplete trees, such as hand-built nodes
// with missing children. Trees returned by Parse always pass.
func Validate(root Node) error {
	var err error
	Inspect(root, func(n Node) bool {
		if err != nil {
			return false
		}
		err = validateNode(n)
		return err == nil
	})
	return err
}

func validateNode(n Node) error {
	incomplete := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s at %s", ErrIncompleteNode, fmt.Sprintf(format, args...), n.Pos())
	}

	switch n := n.(type) {
	case *Query:
		for i, c := range n.Clauses {
			if c == nil {
				return incomplete("clause %d is nil", i)
			}
		}
	case *Where:
		if len(n.Conditions) == 0 {
			return incomplete("WHERE without conditions")
		}
		for _, c := range n.Conditions {
			if c == nil {
				return incomplete("nil condition")
			}
		}
	case *Show:
		if len(n.Fields) == 0 {
			return incomplete("SHOW without fields")
		}
		for _, f := range n.Fields {
			if f == nil || f.Name == "" {
				return incomplete("empty SHOW field")
			}
		}
	case *View:
		if n.Value == "" {
			return incomplete("VIEW without value")
		}
	case *Chart:
		if n.Value == "" {
			return incomplete("CHART without value")
		}
	case *Period:
		if n.Value == "" {
			return incomplete("PERIOD without value")
		}
	case *Size:
		if n.Value == "" {
			return incomplete("SIZE without value")
		}
	case *Condition:
		if n.Field == nil || n.Field.Name == "" {
			return incomplete("condition without field")
		}
		if n.Op == "" {
			return incomplete("condition without operator")
		}
		if n.Value == nil {
			return incomplete("condition on %s without value", n.Field.Name)
		}
		if _, isRange := n.Value.(*DateRange); isRange != (n.Op == OpBetween) {
			return incomplete("operator %s does not match operand on %s", n.Op, n.Field.Name)
		}
	case *DateRange:
		if n.Start == nil || n.End == nil {
			return incomplete("range missing a bound")
		}
	case *Identifier:
		if n.Name == "" {
			return incomplete("empty identifier")
		}
	}
	return nil
}

// children lists a node's direct descendants. The switch is exhaustive over
// the closed node set; leaves return nil.
func children(n Node) []Node {
	switch n := n.(type) {
	case *Query:
		out := make([]Node, 0, len(n.Clauses))
		for _, c := range n.Clauses {
			if c != nil {
				out = append(out, c)
			}
		}
		return out
	case *Where:
		out := make([]Node, 0, len(n.Conditions))
		for _, c := range n.Conditions {
			if c != nil {
				out = append(out, c)
			}
		}
		return out
	case *Show:
		out := make([]Node, 0, len(n.Fields))
		for _, f := range n.Fields {
			if f != nil {
				out = append(out, f)
			}
		}
		return out
	case *Condition:
		var out []Node
		if n.Field != nil {
			out = append(out, n.Field)
		}
		if n.Value != nil {
			out = append(out, n.Value)
		}
		return out
	case *DateRange:
		var out []Node
		if n.Start != nil {
			out = append(out, n.Start)
		}
		if n.End != nil {
			out = append(out, n.End)
		}
		return out
	case *View, *Chart, *Period, *Size, *Literal, *Identifier:
		return nil
	}
	return nil
}
