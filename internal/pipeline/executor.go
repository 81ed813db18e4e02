package pipeline

import (
	"sort"
	"time"

	"github.com/theirongolddev/timeq/internal/calendar"
	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/query"
)

// Order selects how MonthlyData is sorted. Trend data is always oldest first.
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

// Config carries everything the executor reads besides the query and the
// entries. Nothing is taken from package state.
type Config struct {
	HoursPerWorkday float64
	ProjectType     model.ProjectType
	BudgetHours     float64
	DefaultRate     float64
	Deadline        *time.Time

	// Now anchors current-year and rolling windows. Zero means time.Now().
	Now   time.Time
	Order Order

	// IncludeEdgeMonths keeps the first and current month in the all-time
	// utilization average.
	IncludeEdgeMonths bool
}

// DefaultConfig returns an hourly project with an 8-hour workday.
func DefaultConfig() Config {
	return Config{
		HoursPerWorkday: 8,
		ProjectType:     model.ProjectHourly,
	}
}

func (c Config) hasBudget() bool {
	return c.ProjectType.Budgeted() && c.BudgetHours > 0
}

func (c Config) now() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

// Execute filters entries with the spec, buckets them by month and
// assembles the report. It never fails: missing rates, empty input and
// zero-target months all degrade to zero values.
func Execute(spec query.Spec, entries []model.TimeEntry, cfg Config) model.ProcessedData {
	now := cfg.now()

	filtered := sortedByDate(Filter(entries, spec.Where, cfg.DefaultRate))
	months := AggregateMonths(filtered, cfg)

	from, to := Window(spec.Period, now)
	windowMonths := monthsInWindow(months, from, to)
	windowEntries := FilterMonths(filtered, from, to)
	if windowEntries == nil {
		windowEntries = []model.TimeEntry{}
	}

	yearFrom, yearTo := Window(query.PeriodCurrentYear, now)

	out := model.ProcessedData{
		Entries:        windowEntries,
		MonthlyData:    windowMonths,
		TrendData:      BuildTrend(windowMonths),
		Projects:       AggregateProjects(windowEntries, cfg.DefaultRate),
		YearSummary:    summarize(months, yearFrom, yearTo, cfg, now, false),
		AllTimeSummary: summarize(months, calendar.Key{}, calendar.Key{}, cfg, now, true),
	}
	if spec.Period == query.PeriodAllTime {
		out.Summary = out.AllTimeSummary
	} else {
		out.Summary = summarize(months, from, to, cfg, now, false)
	}
	if cfg.Order == NewestFirst {
		out.MonthlyData = reverseMonths(windowMonths)
	}
	return out
}

// Window returns the inclusive month range of a period. Zero keys mean the
// side is unbounded.
func Window(p query.PeriodWindow, now time.Time) (from, to calendar.Key) {
	switch p {
	case query.PeriodAllTime:
		return calendar.Key{}, calendar.Key{}
	case query.PeriodLast6Months, query.PeriodLast12Months:
		return calendar.KeyOf(calendar.AddMonths(now, -(p.Months() - 1))), calendar.KeyOf(now)
	}
	return calendar.Key{Year: now.Year(), Month: time.January}, calendar.Key{Year: now.Year(), Month: time.December}
}

func monthsInWindow(months []model.MonthData, from, to calendar.Key) []model.MonthData {
	out := make([]model.MonthData, 0, len(months))
	for _, m := range months {
		if inWindow(monthKey(m), from, to) {
			out = append(out, m)
		}
	}
	return out
}

// sortedByDate returns a chronologically sorted copy; the input is untouched.
func sortedByDate(entries []model.TimeEntry) []model.TimeEntry {
	out := make([]model.TimeEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
