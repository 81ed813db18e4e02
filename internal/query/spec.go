package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ViewMode is the presentation mode selected by VIEW.
type ViewMode string

const (
	ViewSummary ViewMode = "summary"
	ViewChart   ViewMode = "chart"
	ViewTable   ViewMode = "table"
	ViewFull    ViewMode = "full"
)

// HasChart reports whether the view renders a chart.
func (v ViewMode) HasChart() bool {
	return v == ViewChart || v == ViewFull
}

// ChartType is the chart selected by CHART.
type ChartType string

const (
	ChartNone    ChartType = ""
	ChartTrend   ChartType = "trend"
	ChartMonthly ChartType = "monthly"
	ChartBudget  ChartType = "budget"
)

// PeriodWindow is the reporting window selected by PERIOD.
type PeriodWindow string

const (
	PeriodCurrentYear  PeriodWindow = "current-year"
	PeriodAllTime      PeriodWindow = "all-time"
	PeriodLast6Months  PeriodWindow = "last-6-months"
	PeriodLast12Months PeriodWindow = "last-12-months"
)

// Months returns the rolling window length, or 0 for calendar windows.
func (p PeriodWindow) Months() int {
	switch p {
	case PeriodLast6Months:
		return 6
	case PeriodLast12Months:
		return 12
	}
	return 0
}

// SizeMode is the output density selected by SIZE.
type SizeMode string

const (
	SizeCompact  SizeMode = "compact"
	SizeNormal   SizeMode = "normal"
	SizeDetailed SizeMode = "detailed"
)

var (
	validViews   = []ViewMode{ViewSummary, ViewChart, ViewTable, ViewFull}
	validCharts  = []ChartType{ChartTrend, ChartMonthly, ChartBudget}
	validPeriods = []PeriodWindow{PeriodCurrentYear, PeriodAllTime, PeriodLast6Months, PeriodLast12Months}
	validSizes   = []SizeMode{SizeCompact, SizeNormal, SizeDetailed}
)

// ValueKind tags a resolved filter value.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueDate
)

// Value is a typed filter operand. Only the field matching Kind is set.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Date time.Time
}

// StringValue, NumberValue and DateValue construct typed values.
func StringValue(s string) Value  { return Value{Kind: ValueString, Str: s} }
func NumberValue(n float64) Value { return Value{Kind: ValueNumber, Num: n} }
func DateValue(t time.Time) Value { return Value{Kind: ValueDate, Date: t} }

func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueDate:
		return "'" + v.Date.Format(dateLayout) + "'"
	}
	return strconv.Quote(v.Str)
}

// Compare orders two values of the same kind. Strings compare
// case-insensitively.
func (v Value) Compare(other Value) int {
	switch v.Kind {
	case ValueNumber:
		switch {
		case v.Num < other.Num:
			return -1
		case v.Num > other.Num:
			return 1
		}
		return 0
	case ValueDate:
		return v.Date.Compare(other.Date)
	}
	return strings.Compare(strings.ToLower(v.Str), strings.ToLower(other.Str))
}

// Range is an inclusive BETWEEN interval.
type Range struct {
	Lo Value
	Hi Value
}

// Predicate is one resolved WHERE condition. Range is set only for
// OpBetween; Value otherwise.
type Predicate struct {
	Field string
	Op    Operator
	Value Value
	Range *Range
}

func (p Predicate) String() string {
	if p.Op == OpBetween && p.Range != nil {
		return fmt.Sprintf("%s BETWEEN %s AND %s", p.Field, p.Range.Lo, p.Range.Hi)
	}
	return fmt.Sprintf("%s %s %s", p.Field, p.Op, p.Value)
}

// Matches reports whether v satisfies the predicate. v must already be of
// the predicate's value kind.
func (p Predicate) Matches(v Value) bool {
	if p.Op == OpBetween {
		if p.Range == nil {
			return false
		}
		return v.Compare(p.Range.Lo) >= 0 && v.Compare(p.Range.Hi) <= 0
	}
	c := v.Compare(p.Value)
	switch p.Op {
	case OpEQ:
		return c == 0
	case OpNEQ:
		return c != 0
	case OpGT:
		return c > 0
	case OpLT:
		return c < 0
	case OpGTE:
		return c >= 0
	case OpLTE:
		return c <= 0
	}
	return false
}

// FilterMap groups predicates by canonical field name. All predicates are
// ANDed.
type FilterMap map[string][]Predicate

// Fields returns the filtered field names in sorted order.
func (f FilterMap) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Spec is the fully resolved query. Every field is populated; ChartType is
// empty only when the view has no chart.
type Spec struct {
	Where     FilterMap
	Show      []string
	View      ViewMode
	ChartType ChartType
	Period    PeriodWindow
	Size      SizeMode
}

// DefaultShow is used when a query has no SHOW clause.
var DefaultShow = []string{"hours", "invoiced", "rate", "utilization"}

// DefaultSpec returns the spec of the empty query.
func DefaultSpec() Spec {
	return Spec{
		Where:  FilterMap{},
		Show:   append([]string(nil), DefaultShow...),
		View:   ViewSummary,
		Period: PeriodCurrentYear,
		Size:   SizeNormal,
	}
}

// Clone returns a deep copy so callers may not alias cached specs.
func (s Spec) Clone() Spec {
	out := s
	out.Show = append([]string(nil), s.Show...)
	out.Where = make(FilterMap, len(s.Where))
	for k, preds := range s.Where {
		cp := make([]Predicate, len(preds))
		for i, p := range preds {
			cp[i] = p
			if p.Range != nil {
				r := *p.Range
				cp[i].Range = &r
			}
		}
		out.Where[k] = cp
	}
	return out
}

// ShowsField reports whether name is among the requested columns.
func (s Spec) ShowsField(name string) bool {
	for _, f := range s.Show {
		if f == name {
			return true
		}
	}
	return false
}

// String renders the spec in canonical query form.
func (s Spec) String() string {
	var parts []string
	if len(s.Where) > 0 {
		var conds []string
		for _, field := range s.Where.Fields() {
			for _, p := range s.Where[field] {
				conds = append(conds, p.String())
			}
		}
		parts = append(parts, "WHERE "+strings.Join(conds, " AND "))
	}
	parts = append(parts, "SHOW "+strings.Join(s.Show, ", "))
	parts = append(parts, "VIEW "+string(s.View))
	if s.ChartType != ChartNone {
		parts = append(parts, "CHART "+string(s.ChartType))
	}
	parts = append(parts, "PERIOD "+string(s.Period), "SIZE "+string(s.Size))
	return strings.Join(parts, " ")
}
