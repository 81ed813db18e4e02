package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/theirongolddev/timeq/internal/calendar"
	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/query"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(v float64) *float64 { return &v }

func entry(date string, hours float64) model.TimeEntry {
	return model.TimeEntry{Date: day(date), Hours: hours}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func compile(t *testing.T, text string) query.Spec {
	t.Helper()
	spec, err := query.Compile(text)
	if err != nil {
		t.Fatalf("Compile(%q): %v", text, err)
	}
	return spec
}

func testConfig(now string) Config {
	cfg := DefaultConfig()
	cfg.Now = day(now)
	cfg.Order = OldestFirst
	return cfg
}

func TestExecute_UtilizationIsFraction(t *testing.T) {
	// July 2024 has 23 working days: 184 target hours at 8h/day.
	entries := []model.TimeEntry{
		entry("2024-07-01", 80),
		entry("2024-07-15", 50),
		entry("2024-07-31", 30),
	}
	pd := Execute(compile(t, "PERIOD all-time"), entries, testConfig("2024-12-15"))

	if len(pd.MonthlyData) != 1 {
		t.Fatalf("months = %d, want 1", len(pd.MonthlyData))
	}
	m := pd.MonthlyData[0]
	if m.TargetHours != 184 {
		t.Errorf("TargetHours = %v, want 184", m.TargetHours)
	}
	if !almostEqual(m.Utilization, 160.0/184.0) {
		t.Errorf("Utilization = %v, want %v", m.Utilization, 160.0/184.0)
	}
	if m.Utilization > 1 {
		t.Errorf("utilization %v looks percentage-scaled", m.Utilization)
	}
	if m.Label != "Jul 2024" || m.Entries != 3 {
		t.Errorf("month = %+v", m)
	}
}

func TestExecute_CumulativeBudget(t *testing.T) {
	entries := []model.TimeEntry{
		entry("2024-03-10", 50),
		entry("2024-01-05", 25),
		entry("2024-02-20", 35),
		entry("2024-01-20", 15),
	}
	cfg := testConfig("2024-12-01")
	cfg.ProjectType = model.ProjectFixedHours
	cfg.BudgetHours = 120

	pd := Execute(compile(t, "PERIOD all-time"), entries, cfg)
	if len(pd.MonthlyData) != 3 {
		t.Fatalf("months = %d, want 3", len(pd.MonthlyData))
	}

	wantCum := []float64{40, 75, 125}
	wantRemaining := []float64{80, 45, 0}
	wantProgress := []float64{40.0 / 120, 75.0 / 120, 1}
	for i, m := range pd.MonthlyData {
		if m.Budget == nil {
			t.Fatalf("month %d has no budget stats", i)
		}
		if m.CumulativeHours != wantCum[i] || m.Budget.BudgetUsed != wantCum[i] {
			t.Errorf("month %d cumulative = %v/%v, want %v", i, m.CumulativeHours, m.Budget.BudgetUsed, wantCum[i])
		}
		if m.Budget.BudgetRemaining != wantRemaining[i] {
			t.Errorf("month %d remaining = %v, want %v", i, m.Budget.BudgetRemaining, wantRemaining[i])
		}
		if !almostEqual(m.Budget.BudgetProgress, wantProgress[i]) {
			t.Errorf("month %d progress = %v, want %v", i, m.Budget.BudgetProgress, wantProgress[i])
		}
	}

	if pd.Summary.Budget == nil || pd.Summary.Budget.BudgetUsed != 125 || pd.Summary.Budget.BudgetProgress != 1 {
		t.Errorf("summary budget = %+v", pd.Summary.Budget)
	}
}

func TestExecute_BudgetMonotonic(t *testing.T) {
	var entries []model.TimeEntry
	for m := 1; m <= 12; m++ {
		entries = append(entries, model.TimeEntry{
			Date:  time.Date(2023, time.Month(m), 10, 0, 0, 0, 0, time.UTC),
			Hours: float64((m * 7) % 11),
		})
	}
	cfg := testConfig("2024-06-01")
	cfg.ProjectType = model.ProjectRetainer
	cfg.BudgetHours = 40

	pd := Execute(compile(t, "PERIOD all-time"), entries, cfg)
	prev := -1.0
	for _, m := range pd.MonthlyData {
		b := m.Budget
		if b.BudgetUsed < prev {
			t.Errorf("%s: budget used decreased %v -> %v", m.Label, prev, b.BudgetUsed)
		}
		prev = b.BudgetUsed
		if b.BudgetRemaining < 0 {
			t.Errorf("%s: negative remaining %v", m.Label, b.BudgetRemaining)
		}
		if b.BudgetProgress < 0 || b.BudgetProgress > 1 {
			t.Errorf("%s: progress %v out of range", m.Label, b.BudgetProgress)
		}
	}
}

func TestExecute_HourlyProjectHasNoBudget(t *testing.T) {
	cfg := testConfig("2024-12-01")
	cfg.BudgetHours = 100
	pd := Execute(compile(t, "PERIOD all-time"), []model.TimeEntry{entry("2024-01-02", 3)}, cfg)
	if pd.MonthlyData[0].Budget != nil || pd.Summary.Budget != nil {
		t.Error("hourly project should not carry budget stats")
	}
	if pd.MonthlyData[0].CumulativeHours != 3 {
		t.Errorf("CumulativeHours = %v, want 3", pd.MonthlyData[0].CumulativeHours)
	}
}

func TestExecute_Conservation(t *testing.T) {
	var entries []model.TimeEntry
	expected := make(map[calendar.Key]float64)
	for i := 0; i < 200; i++ {
		d := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i*5)
		h := float64(i%9) + 0.25
		entries = append(entries, model.TimeEntry{Date: d, Hours: h})
		expected[calendar.KeyOf(d)] += h
	}

	pd := Execute(compile(t, "PERIOD all-time"), entries, testConfig("2025-01-01"))
	if len(pd.MonthlyData) != len(expected) {
		t.Fatalf("months = %d, want %d", len(pd.MonthlyData), len(expected))
	}
	var total float64
	for _, m := range pd.MonthlyData {
		want := expected[calendar.Key{Year: m.Year, Month: m.Month}]
		if !almostEqual(m.Hours, want) {
			t.Errorf("%s hours = %v, want %v", m.Label, m.Hours, want)
		}
		target := calendar.TargetHours(m.Year, m.Month, 8)
		if !almostEqual(m.Utilization, m.Hours/target) {
			t.Errorf("%s utilization = %v, want %v", m.Label, m.Utilization, m.Hours/target)
		}
		total += m.Hours
	}
	if !almostEqual(pd.Summary.TotalHours, total) {
		t.Errorf("summary hours = %v, want %v", pd.Summary.TotalHours, total)
	}
	if pd.TrendData.Len() != len(pd.MonthlyData) {
		t.Errorf("trend points = %d, want %d", pd.TrendData.Len(), len(pd.MonthlyData))
	}
}

func TestExecute_Empty(t *testing.T) {
	for _, text := range []string{"", "PERIOD all-time", "WHERE project = nobody VIEW full PERIOD last-6-months"} {
		pd := Execute(compile(t, text), nil, testConfig("2024-05-05"))
		if pd.MonthlyData == nil || len(pd.MonthlyData) != 0 {
			t.Errorf("%q: MonthlyData = %#v, want empty non-nil", text, pd.MonthlyData)
		}
		if pd.TrendData.Len() != 0 {
			t.Errorf("%q: trend not empty", text)
		}
		s := pd.Summary
		if s.TotalHours != 0 || s.TotalInvoiced != 0 || s.Utilization != 0 {
			t.Errorf("%q: summary = %+v, want zeros", text, s)
		}
	}
}

func TestExecute_RatesAndInvoicing(t *testing.T) {
	entries := []model.TimeEntry{
		{Date: day("2024-02-01"), Hours: 2, Rate: ptr(100)},
		{Date: day("2024-02-02"), Hours: 3, Rate: ptr(150)},
		{Date: day("2024-02-03"), Hours: 5},
	}

	pd := Execute(compile(t, "PERIOD all-time"), entries, testConfig("2024-12-01"))
	m := pd.MonthlyData[0]
	if m.Invoiced != 650 {
		t.Errorf("Invoiced = %v, want 650", m.Invoiced)
	}
	if !almostEqual(m.Rate, 65) {
		t.Errorf("Rate = %v, want weighted 65", m.Rate)
	}

	cfg := testConfig("2024-12-01")
	cfg.DefaultRate = 80
	pd = Execute(compile(t, "PERIOD all-time"), entries, cfg)
	if got := pd.MonthlyData[0].Invoiced; got != 1050 {
		t.Errorf("Invoiced with default rate = %v, want 1050", got)
	}
}

func TestExecute_ZeroHoursMonth(t *testing.T) {
	pd := Execute(compile(t, "PERIOD all-time"), []model.TimeEntry{entry("2024-04-02", 0)}, testConfig("2024-12-01"))
	m := pd.MonthlyData[0]
	if m.Rate != 0 || m.Utilization != 0 || m.Invoiced != 0 {
		t.Errorf("zero-hour month = %+v", m)
	}

	cfg := testConfig("2024-12-01")
	cfg.HoursPerWorkday = 0
	pd = Execute(compile(t, "PERIOD all-time"), []model.TimeEntry{entry("2024-04-02", 5)}, cfg)
	if u := pd.MonthlyData[0].Utilization; u != 0 || math.IsNaN(u) || math.IsInf(u, 0) {
		t.Errorf("zero-target utilization = %v, want 0", u)
	}
}

func TestExecute_Filters(t *testing.T) {
	entries := []model.TimeEntry{
		{Date: day("2024-01-10"), Hours: 1, Project: "Acme", Rate: ptr(100)},
		{Date: day("2024-01-31"), Hours: 2, Project: "acme"},
		{Date: day("2024-02-01"), Hours: 4, Project: "Beta", Rate: ptr(200)},
		{Date: day("2024-03-15"), Hours: 8},
	}
	cfg := testConfig("2024-12-01")

	tests := []struct {
		text  string
		hours float64
	}{
		{"WHERE project = 'ACME' PERIOD all-time", 3},
		{"WHERE client != acme PERIOD all-time", 12},
		{"WHERE rate > 150 PERIOD all-time", 4},
		{"WHERE rate <= 150 PERIOD all-time", 1},
		{"WHERE date BETWEEN '2024-01-31' AND '2024-02-01' PERIOD all-time", 6},
		{"WHERE month = feb PERIOD all-time", 4},
		{"WHERE year = 2023 PERIOD all-time", 0},
		{"WHERE hours >= 2 AND hours < 8 PERIOD all-time", 6},
		{"WHERE hours BETWEEN 2 AND 8 WHERE project != beta PERIOD all-time", 10},
		{"WHERE notes = x PERIOD all-time", 0},
	}
	for _, tt := range tests {
		pd := Execute(compile(t, tt.text), entries, cfg)
		if pd.Summary.TotalHours != tt.hours {
			t.Errorf("%q: hours = %v, want %v", tt.text, pd.Summary.TotalHours, tt.hours)
		}
	}

	// A default rate makes rate-less entries comparable.
	cfg.DefaultRate = 120
	pd := Execute(compile(t, "WHERE rate = 120 PERIOD all-time"), entries, cfg)
	if pd.Summary.TotalHours != 10 {
		t.Errorf("rate = default: hours = %v, want 10", pd.Summary.TotalHours)
	}
}

func TestExecute_PeriodWindows(t *testing.T) {
	var entries []model.TimeEntry
	for m := 1; m <= 20; m++ {
		entries = append(entries, model.TimeEntry{
			Date:  time.Date(2023, time.Month(m), 3, 0, 0, 0, 0, time.UTC), // Jan 2023 .. Aug 2024
			Hours: 10,
		})
	}
	cfg := testConfig("2024-08-15")

	tests := []struct {
		period string
		months int
		first  string
	}{
		{"current-year", 8, "Jan 2024"},
		{"last-6-months", 6, "Mar 2024"},
		{"last-12-months", 12, "Sep 2023"},
		{"all-time", 20, "Jan 2023"},
	}
	for _, tt := range tests {
		pd := Execute(compile(t, "PERIOD "+tt.period), entries, cfg)
		if len(pd.MonthlyData) != tt.months {
			t.Errorf("%s: months = %d, want %d", tt.period, len(pd.MonthlyData), tt.months)
			continue
		}
		if pd.MonthlyData[0].Label != tt.first || pd.TrendData.Labels[0] != tt.first {
			t.Errorf("%s: first month = %s, want %s", tt.period, pd.MonthlyData[0].Label, tt.first)
		}
		if len(pd.Entries) != tt.months {
			t.Errorf("%s: entries = %d, want %d", tt.period, len(pd.Entries), tt.months)
		}
		if pd.Summary.TotalHours != float64(tt.months*10) {
			t.Errorf("%s: summary hours = %v", tt.period, pd.Summary.TotalHours)
		}
	}

	// Cumulative hours include months before the window.
	pd := Execute(compile(t, "PERIOD last-6-months"), entries, cfg)
	if got := pd.MonthlyData[0].CumulativeHours; got != 150 {
		t.Errorf("first windowed cumulative = %v, want 150", got)
	}
	if pd.YearSummary.TotalHours != 80 || pd.AllTimeSummary.TotalHours != 200 {
		t.Errorf("year/all-time hours = %v/%v", pd.YearSummary.TotalHours, pd.AllTimeSummary.TotalHours)
	}
	if !pd.Summary.From.Equal(day("2024-03-01")) || !pd.Summary.To.Equal(day("2024-08-31")) {
		t.Errorf("summary range = %v..%v", pd.Summary.From, pd.Summary.To)
	}
}

func TestExecute_Ordering(t *testing.T) {
	entries := []model.TimeEntry{entry("2024-01-02", 1), entry("2024-03-02", 3), entry("2024-02-02", 2)}
	cfg := testConfig("2024-12-01")
	cfg.Order = NewestFirst

	pd := Execute(compile(t, "PERIOD all-time"), entries, cfg)
	if pd.MonthlyData[0].Label != "Mar 2024" || pd.MonthlyData[2].Label != "Jan 2024" {
		t.Errorf("newest-first order = %s..%s", pd.MonthlyData[0].Label, pd.MonthlyData[2].Label)
	}
	if pd.TrendData.Labels[0] != "Jan 2024" || pd.TrendData.Hours[2] != 3 {
		t.Errorf("trend must stay oldest first: %v %v", pd.TrendData.Labels, pd.TrendData.Hours)
	}
	if !pd.Entries[0].Date.Equal(day("2024-01-02")) || !pd.Entries[2].Date.Equal(day("2024-03-02")) {
		t.Error("entries not chronological")
	}
	if !entries[1].Date.Equal(day("2024-03-02")) {
		t.Error("input slice was reordered")
	}
}

func TestExecute_AllTimeUtilizationSkipsEdgeMonths(t *testing.T) {
	// Targets at 8h: Jan 2024 184, Feb 168, Mar 168.
	entries := []model.TimeEntry{
		entry("2024-01-15", 92),  // 0.50
		entry("2024-02-15", 126), // 0.75
		entry("2024-03-15", 42),  // 0.25
	}
	cfg := testConfig("2024-03-20")

	pd := Execute(compile(t, "PERIOD all-time"), entries, cfg)
	if !almostEqual(pd.AllTimeSummary.Utilization, 0.75) {
		t.Errorf("all-time utilization = %v, want 0.75 (first and current month skipped)", pd.AllTimeSummary.Utilization)
	}
	if !almostEqual(pd.Summary.Utilization, 0.75) {
		t.Errorf("PERIOD all-time summary = %v, want the all-time figure", pd.Summary.Utilization)
	}
	if !almostEqual(pd.YearSummary.Utilization, 0.5) {
		t.Errorf("year utilization = %v, want 0.5 (every month)", pd.YearSummary.Utilization)
	}
	for i, want := range []float64{0.5, 0.75, 0.25} {
		if !almostEqual(pd.MonthlyData[i].Utilization, want) {
			t.Errorf("month %d utilization = %v, want %v", i, pd.MonthlyData[i].Utilization, want)
		}
	}

	cfg.IncludeEdgeMonths = true
	pd = Execute(compile(t, "PERIOD all-time"), entries, cfg)
	if !almostEqual(pd.AllTimeSummary.Utilization, 0.5) {
		t.Errorf("with edge months = %v, want 0.5", pd.AllTimeSummary.Utilization)
	}

	// Nothing would remain: fall back to every month.
	pd = Execute(compile(t, "PERIOD all-time"), entries[:2], testConfig("2024-02-20"))
	if !almostEqual(pd.AllTimeSummary.Utilization, 0.625) {
		t.Errorf("two-month fallback = %v, want 0.625", pd.AllTimeSummary.Utilization)
	}
}

func TestExecute_DeadlineAndProjects(t *testing.T) {
	cfg := testConfig("2024-06-10")
	deadline := day("2024-06-30")
	cfg.Deadline = &deadline

	entries := []model.TimeEntry{
		{Date: day("2024-06-01"), Hours: 3, Project: "Acme"},
		{Date: day("2024-06-02"), Hours: 1, Project: "acme"},
		{Date: day("2024-06-03"), Hours: 4, Project: "Beta"},
		{Date: day("2024-06-04"), Hours: 2},
	}
	pd := Execute(compile(t, ""), entries, cfg)
	if pd.Summary.DaysToDeadline == nil || *pd.Summary.DaysToDeadline != 20 {
		t.Errorf("DaysToDeadline = %v, want 20", pd.Summary.DaysToDeadline)
	}
	if len(pd.Projects) != 3 {
		t.Fatalf("projects = %+v", pd.Projects)
	}
	if pd.Projects[0].Hours != 4 || pd.Projects[2].Project != "" {
		t.Errorf("project order = %+v", pd.Projects)
	}
	if !almostEqual(pd.Projects[0].Share+pd.Projects[1].Share+pd.Projects[2].Share, 1) {
		t.Error("project shares do not sum to 1")
	}
}

func TestExecute_Deterministic(t *testing.T) {
	entries := []model.TimeEntry{entry("2024-01-02", 1), entry("2024-01-02", 2), entry("2024-02-05", 3)}
	spec := compile(t, "VIEW full PERIOD all-time")
	cfg := testConfig("2024-12-01")
	a := Execute(spec, entries, cfg)
	b := Execute(spec, entries, cfg)
	if a.Summary != b.Summary || len(a.MonthlyData) != len(b.MonthlyData) {
		t.Error("Execute is not deterministic")
	}
}

func TestWindow(t *testing.T) {
	now := day("2025-02-10")
	from, to := Window(query.PeriodLast12Months, now)
	if from != (calendar.Key{Year: 2024, Month: time.March}) || to != (calendar.Key{Year: 2025, Month: time.February}) {
		t.Errorf("last-12-months = %v..%v", from, to)
	}
	from, to = Window(query.PeriodAllTime, now)
	if from != (calendar.Key{}) || to != (calendar.Key{}) {
		t.Errorf("all-time should be unbounded, got %v..%v", from, to)
	}
}
