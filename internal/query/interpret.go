package query

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Compile parses and interprets text in one step.
func Compile(text string) (Spec, error) {
	q, err := Parse(text)
	if err != nil {
		return Spec{}, err
	}
	return Interpret(q)
}

// Interpret resolves a parsed query into a Spec with every default filled
// in. It is pure. On error the returned Spec is the zero value.
func Interpret(q *Query) (Spec, error) {
	if q == nil {
		return DefaultSpec(), nil
	}
	if err := checkUniqueClauses(q); err != nil {
		return Spec{}, err
	}

	spec := DefaultSpec()
	var chart *Chart
	viewSet := false

	for _, clause := range q.Clauses {
		switch c := clause.(type) {
		case *Where:
			for _, cond := range c.Conditions {
				pred, err := resolveCondition(cond)
				if err != nil {
					return Spec{}, err
				}
				spec.Where[pred.Field] = append(spec.Where[pred.Field], pred)
			}
		case *Show:
			show, err := resolveShow(c)
			if err != nil {
				return Spec{}, err
			}
			spec.Show = show
		case *View:
			v, err := resolveEnum(c.Value, c.ValueAt, "view", validViews)
			if err != nil {
				return Spec{}, err
			}
			spec.View = v
			viewSet = true
		case *Chart:
			v, err := resolveEnum(c.Value, c.ValueAt, "chart type", validCharts)
			if err != nil {
				return Spec{}, err
			}
			spec.ChartType = v
			chart = c
		case *Period:
			v, err := resolveEnum(c.Value, c.ValueAt, "period", validPeriods)
			if err != nil {
				return Spec{}, err
			}
			spec.Period = v
		case *Size:
			v, err := resolveEnum(c.Value, c.ValueAt, "size", validSizes)
			if err != nil {
				return Spec{}, err
			}
			spec.Size = v
		default:
			return Spec{}, newSemanticError(ErrIncompleteNode, clause.Pos(), "", "unsupported clause %s", clause.Kind())
		}
	}

	if chart != nil && !spec.View.HasChart() {
		msg := "CHART %s requires VIEW chart or VIEW full"
		if viewSet {
			msg += ", got VIEW " + string(spec.View)
		}
		return Spec{}, newSemanticError(ErrIncompatibleChart, chart.Pos(), chart.Value, msg, spec.ChartType)
	}
	if spec.View.HasChart() && spec.ChartType == ChartNone {
		spec.ChartType = ChartMonthly
	}
	return spec, nil
}

func resolveEnum[T ~string](raw string, at Pos, what string, valid []T) (T, error) {
	norm := T(strings.ToLower(raw))
	for _, v := range valid {
		if v == norm {
			return v, nil
		}
	}
	names := make([]string, len(valid))
	for i, v := range valid {
		names[i] = string(v)
	}
	var zero T
	return zero, newSemanticError(ErrInvalidValue, at, raw,
		"invalid %s %q (expected one of %s)", what, raw, strings.Join(names, ", "))
}

func resolveShow(s *Show) ([]string, error) {
	out := make([]string, 0, len(s.Fields))
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		name := strings.ToLower(f.Name)
		if !isShowField(name) {
			return nil, newSemanticError(ErrUnknownField, f.Pos(), f.Name,
				"unknown field %q in SHOW (expected one of %s)", f.Name, strings.Join(ShowFields, ", "))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

func resolveCondition(c *Condition) (Predicate, error) {
	def, ok := lookupWhereField(c.Field.Name)
	if !ok {
		return Predicate{}, newSemanticError(ErrUnknownField, c.Field.Pos(), c.Field.Name,
			"unknown field %q in WHERE", c.Field.Name)
	}

	pred := Predicate{Field: def.name, Op: c.Op}

	if def.typ == fieldString && c.Op != OpEQ && c.Op != OpNEQ {
		return Predicate{}, newSemanticError(ErrInvalidValue, c.Pos(), string(c.Op),
			"operator %s is not supported on %s field %q", c.Op, def.typ, def.name)
	}

	if c.Op == OpBetween {
		r, ok := c.Value.(*DateRange)
		if !ok {
			return Predicate{}, newSemanticError(ErrInvalidValue, c.Value.Pos(), "",
				"BETWEEN on %q needs a range 'lo' AND 'hi'", def.name)
		}
		lo, err := resolveValue(def, r.Start)
		if err != nil {
			return Predicate{}, err
		}
		hi, err := resolveValue(def, r.End)
		if err != nil {
			return Predicate{}, err
		}
		if lo.Compare(hi) > 0 {
			return Predicate{}, newSemanticError(ErrInvalidValue, r.Pos(), r.Start.Raw,
				"empty range on %q: %s is after %s", def.name, lo, hi)
		}
		pred.Range = &Range{Lo: lo, Hi: hi}
		return pred, nil
	}

	v, err := resolveValue(def, c.Value)
	if err != nil {
		return Predicate{}, err
	}
	pred.Value = v
	return pred, nil
}

// resolveValue turns a literal or identifier into the field's value kind.
func resolveValue(def fieldDef, e Expr) (Value, error) {
	var raw string
	var lit *Literal
	switch e := e.(type) {
	case *Literal:
		raw, lit = e.Raw, e
	case *Identifier:
		raw = e.Name
	case *DateRange:
		return Value{}, newSemanticError(ErrInvalidValue, e.Pos(), "",
			"range operand is only valid with BETWEEN on %q", def.name)
	default:
		return Value{}, newSemanticError(ErrIncompleteNode, Pos{}, "", "missing value for %q", def.name)
	}

	bad := func(expected string) error {
		return newSemanticError(ErrInvalidValue, e.Pos(), raw,
			"invalid value %q for %s field %q (expected %s)", raw, def.typ, def.name, expected)
	}

	switch def.typ {
	case fieldNumber:
		if lit == nil || lit.LitKind == LiteralDate {
			return Value{}, bad("a number")
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return Value{}, bad("a number")
		}
		return NumberValue(n), nil

	case fieldMonth:
		if m, ok := monthNames[strings.ToLower(raw)]; ok {
			return NumberValue(float64(m)), nil
		}
		if lit == nil || lit.LitKind == LiteralDate {
			return Value{}, bad("1-12 or a month name")
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 12 {
			return Value{}, bad("1-12 or a month name")
		}
		return NumberValue(float64(n)), nil

	case fieldDate:
		if lit == nil || lit.LitKind == LiteralNumber {
			return Value{}, bad("a quoted date like '2024-01-31'")
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return Value{}, bad("a quoted date like '2024-01-31'")
		}
		return DateValue(t), nil
	}

	return StringValue(raw), nil
}
