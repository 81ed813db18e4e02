package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/query"
)

// Options control presentation only; nothing here changes the numbers.
type Options struct {
	Currency    string
	DefaultRate float64
	NoColor     bool
	// Width of chart bars and the budget bar.
	Width int
}

func (o Options) currency() string {
	if o.Currency == "" {
		return "$"
	}
	return o.Currency
}

func (o Options) width() int {
	if o.Width <= 0 {
		return 40
	}
	return o.Width
}

// rowLimit caps table rows per size mode. Zero means no limit.
func rowLimit(size query.SizeMode, normal int) int {
	switch size {
	case query.SizeCompact:
		return normal / 2
	case query.SizeDetailed:
		return 0
	}
	return normal
}

// RenderReport renders pd the way spec asks for it: VIEW picks the
// sections, SHOW picks the columns and SIZE picks the density.
func RenderReport(spec query.Spec, pd model.ProcessedData, opts Options) string {
	var b strings.Builder

	switch spec.View {
	case query.ViewSummary:
		b.WriteString(renderSummary(spec, pd, opts))
	case query.ViewChart:
		b.WriteString(renderChart(spec, pd, opts))
	case query.ViewTable:
		b.WriteString(renderMonthTable(spec, pd, opts))
		b.WriteString(renderEntryTable(spec, pd, opts))
	case query.ViewFull:
		b.WriteString(renderSummary(spec, pd, opts))
		b.WriteString("\n")
		b.WriteString(renderChart(spec, pd, opts))
		b.WriteString("\n")
		b.WriteString(renderMonthTable(spec, pd, opts))
		b.WriteString(renderEntryTable(spec, pd, opts))
	}

	if spec.Size == query.SizeDetailed && len(pd.Projects) > 0 {
		b.WriteString("\n")
		b.WriteString(renderProjects(pd, opts))
	}
	return b.String()
}

func periodTitle(spec query.Spec, s model.SummaryData) string {
	title := "timeq - " + string(spec.Period)
	if !s.From.IsZero() {
		title += fmt.Sprintf("  (%s to %s)", s.From.Format("Jan 2006"), s.To.Format("Jan 2006"))
	}
	return title
}

func renderSummary(spec query.Spec, pd model.ProcessedData, opts Options) string {
	s := pd.Summary
	cur := opts.currency()

	if spec.Size == query.SizeCompact {
		line := fmt.Sprintf("  %s  %s  %s",
			hoursStyle.Render(FormatHours(s.TotalHours)),
			moneyStyle.Render(FormatMoney(cur, s.TotalInvoiced)),
			valueStyle.Render(FormatPercent(s.Utilization)+" util"))
		return line + "\n"
	}

	var b strings.Builder
	b.WriteString(RenderTitle(periodTitle(spec, s)))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Entries", FormatNumber(int64(s.Entries))},
		{"Months", FormatNumber(int64(s.Months))},
	}
	if spec.ShowsField("hours") {
		rows = append(rows, []string{"Hours", FormatHours(s.TotalHours)})
	}
	if spec.ShowsField("invoiced") {
		rows = append(rows, []string{"Invoiced", FormatMoney(cur, s.TotalInvoiced)})
	}
	if spec.ShowsField("rate") {
		rows = append(rows, []string{"Average rate", FormatMoney(cur, s.AverageRate) + "/h"})
	}
	if spec.ShowsField("utilization") {
		rows = append(rows, []string{"Utilization", FormatPercent(s.Utilization)})
	}
	if s.DaysToDeadline != nil {
		rows = append(rows, []string{"Deadline", FormatDeadline(*s.DaysToDeadline)})
	}
	if spec.Size == query.SizeDetailed {
		rows = append(rows,
			[]string{"---"},
			[]string{"This year", FormatHours(pd.YearSummary.TotalHours) + " / " + FormatPercent(pd.YearSummary.Utilization)},
			[]string{"All time", FormatHours(pd.AllTimeSummary.TotalHours) + " / " + FormatPercent(pd.AllTimeSummary.Utilization)},
		)
	}
	b.WriteString(RenderTable(Table{Rows: rows}))

	if s.Budget != nil {
		b.WriteString(renderBudgetLine(*s.Budget, opts))
	}
	return b.String()
}

func renderBudgetLine(bs model.BudgetStats, opts Options) string {
	label := fmt.Sprintf("%s of %s used, %s left",
		FormatHours(bs.BudgetUsed), FormatHours(bs.BudgetHours), FormatHours(bs.BudgetRemaining))
	style := mutedStyle
	if bs.BudgetProgress >= 1 {
		style = warnStyle
	}
	return "  " + RenderBudgetBar(bs.BudgetProgress, opts.width(), opts.NoColor) + "\n  " + style.Render(label) + "\n"
}

func renderChart(spec query.Spec, pd model.ProcessedData, opts Options) string {
	td := pd.TrendData
	if td.Len() == 0 {
		return mutedStyle.Render("  No data for this period.") + "\n"
	}

	var b strings.Builder
	switch spec.ChartType {
	case query.ChartTrend:
		b.WriteString(headerStyle.Render("  Trend"))
		b.WriteString("\n")
		fmt.Fprintf(&b, "  %-12s %s\n", "hours", hoursStyle.Render(RenderSparkline(td.Hours)))
		fmt.Fprintf(&b, "  %-12s %s\n", "utilization", hoursStyle.Render(RenderSparkline(td.Utilization)))
		if spec.ShowsField("invoiced") {
			fmt.Fprintf(&b, "  %-12s %s\n", "invoiced", moneyStyle.Render(RenderSparkline(td.Invoiced)))
		}
		fmt.Fprintf(&b, "  %s\n", dimStyle.Render(td.Labels[0]+" .. "+td.Labels[td.Len()-1]))

	case query.ChartBudget:
		b.WriteString(headerStyle.Render("  Budget burn"))
		b.WriteString("\n")
		months := chronological(pd.MonthlyData)
		if len(months) == 0 || months[0].Budget == nil {
			b.WriteString(mutedStyle.Render("  No budget configured for this project."))
			b.WriteString("\n")
			break
		}
		total := months[0].Budget.BudgetHours
		for _, m := range months {
			b.WriteString(RenderHorizontalBar(shortLabel(m), m.CumulativeHours, total, opts.width(),
				FormatPercent(m.Budget.BudgetProgress)))
			b.WriteString("\n")
		}

	default:
		b.WriteString(headerStyle.Render("  Hours by month"))
		b.WriteString("\n")
		peak := 0.0
		for _, h := range td.Hours {
			if h > peak {
				peak = h
			}
		}
		for i, label := range td.Labels {
			text := FormatHours(td.Hours[i])
			if spec.ShowsField("utilization") {
				text += "  " + FormatPercent(td.Utilization[i])
			}
			b.WriteString(RenderHorizontalBar(label, td.Hours[i], peak, opts.width(), text))
			b.WriteString("\n")
		}
	}
	return b.String()
}

type monthColumn struct {
	header string
	cell   func(model.MonthData) string
}

func monthColumns(spec query.Spec, cur string) []monthColumn {
	cols := []monthColumn{{"Month", func(m model.MonthData) string { return m.Label }}}
	for _, f := range spec.Show {
		switch f {
		case "hours":
			cols = append(cols, monthColumn{"Hours", func(m model.MonthData) string { return FormatHours(m.Hours) }})
		case "invoiced":
			cols = append(cols, monthColumn{"Invoiced", func(m model.MonthData) string { return FormatMoney(cur, m.Invoiced) }})
		case "rate":
			cols = append(cols, monthColumn{"Rate", func(m model.MonthData) string { return FormatMoney(cur, m.Rate) }})
		case "utilization":
			cols = append(cols, monthColumn{"Util", func(m model.MonthData) string { return FormatPercent(m.Utilization) }})
		case "cumulative":
			cols = append(cols, monthColumn{"Cumulative", func(m model.MonthData) string { return FormatHours(m.CumulativeHours) }})
		case "budget":
			cols = append(cols, monthColumn{"Budget left", func(m model.MonthData) string {
				if m.Budget == nil {
					return "-"
				}
				return FormatHours(m.Budget.BudgetRemaining)
			}})
		}
	}
	return cols
}

func renderMonthTable(spec query.Spec, pd model.ProcessedData, opts Options) string {
	if len(pd.MonthlyData) == 0 {
		return mutedStyle.Render("  No months matched.") + "\n"
	}

	cols := monthColumns(spec, opts.currency())
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.header
	}

	months := pd.MonthlyData
	limit := rowLimit(spec.Size, 12)
	truncated := 0
	if limit > 0 && len(months) > limit {
		truncated = len(months) - limit
		months = months[:limit]
	}

	rows := make([][]string, 0, len(months))
	for _, m := range months {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = c.cell(m)
		}
		rows = append(rows, row)
	}

	out := RenderTable(Table{Title: "Months", Headers: headers, Rows: rows})
	if truncated > 0 {
		out += mutedStyle.Render(fmt.Sprintf("  ... %d more months (SIZE detailed shows all)", truncated)) + "\n"
	}
	return out
}

// renderEntryTable lists individual entries when an entry-level field is
// requested.
func renderEntryTable(spec query.Spec, pd model.ProcessedData, opts Options) string {
	if !spec.ShowsField("date") && !spec.ShowsField("project") && !spec.ShowsField("notes") {
		return ""
	}
	if len(pd.Entries) == 0 {
		return ""
	}

	cur := opts.currency()
	headers := []string{"Date"}
	for _, f := range spec.Show {
		switch f {
		case "project":
			headers = append(headers, "Project")
		case "hours":
			headers = append(headers, "Hours")
		case "rate":
			headers = append(headers, "Rate")
		case "invoiced":
			headers = append(headers, "Invoiced")
		case "notes":
			headers = append(headers, "Notes")
		}
	}

	entries := pd.Entries
	limit := rowLimit(spec.Size, 25)
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{e.Date.Format("2006-01-02")}
		for _, f := range spec.Show {
			switch f {
			case "project":
				row = append(row, e.Project)
			case "hours":
				row = append(row, FormatHours(e.Hours))
			case "rate":
				row = append(row, FormatMoney(cur, e.RateOr(opts.DefaultRate)))
			case "invoiced":
				row = append(row, FormatMoney(cur, e.Hours*e.RateOr(opts.DefaultRate)))
			case "notes":
				row = append(row, e.Notes)
			}
		}
		rows = append(rows, row)
	}
	return "\n" + RenderTable(Table{Title: "Entries", Headers: headers, Rows: rows})
}

func renderProjects(pd model.ProcessedData, opts Options) string {
	rows := make([][]string, 0, len(pd.Projects))
	for _, p := range pd.Projects {
		name := p.Project
		if name == "" {
			name = "(none)"
		}
		rows = append(rows, []string{
			name,
			FormatNumber(int64(p.Entries)),
			FormatHours(p.Hours),
			FormatMoney(opts.currency(), p.Invoiced),
			FormatPercent(p.Share),
		})
	}
	return RenderTable(Table{
		Title:   "Projects",
		Headers: []string{"Project", "Entries", "Hours", "Invoiced", "Share"},
		Rows:    rows,
	})
}

// chronological returns months oldest first regardless of report order.
func chronological(months []model.MonthData) []model.MonthData {
	out := append([]model.MonthData(nil), months...)
	if len(out) > 1 && monthTime(out[0]).After(monthTime(out[len(out)-1])) {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func monthTime(m model.MonthData) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

func shortLabel(m model.MonthData) string {
	return monthTime(m).Format("Jan 06")
}
