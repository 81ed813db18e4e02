package pipeline

import (
	"time"

	"github.com/theirongolddev/timeq/internal/calendar"
	"github.com/theirongolddev/timeq/internal/model"
)

// summarize reduces the months within [from, to] of a chronological month
// list. Utilization is the mean of per-month utilization, so every month
// weighs the same regardless of entry count.
//
// With excludeEdges the mean skips the first month with entries and the
// current month, both of which are usually partial. When that would leave
// nothing, every month is used.
func summarize(months []model.MonthData, from, to calendar.Key, cfg Config, now time.Time, excludeEdges bool) model.SummaryData {
	sel := monthsInWindow(months, from, to)

	var s model.SummaryData
	s.Months = len(sel)
	for _, m := range sel {
		s.Entries += m.Entries
		s.TotalHours += m.Hours
		s.TotalInvoiced += m.Invoiced
	}
	if s.TotalHours > 0 {
		s.AverageRate = s.TotalInvoiced / s.TotalHours
	}
	s.From, s.To = summaryBounds(sel, from, to)

	utilMonths := sel
	if excludeEdges && !cfg.IncludeEdgeMonths {
		utilMonths = withoutEdgeMonths(sel, calendar.KeyOf(now))
	}
	if len(utilMonths) > 0 {
		var sum float64
		for _, m := range utilMonths {
			sum += m.Utilization
		}
		s.Utilization = sum / float64(len(utilMonths))
	}

	if cfg.hasBudget() {
		bs := model.NewBudgetStats(cfg.BudgetHours, cumulativeThrough(months, to))
		s.Budget = &bs
	}

	if cfg.Deadline != nil {
		days := int(calendar.Day(*cfg.Deadline).Sub(calendar.Day(now)).Hours() / 24)
		s.DaysToDeadline = &days
	}

	return s
}

func withoutEdgeMonths(sel []model.MonthData, current calendar.Key) []model.MonthData {
	if len(sel) == 0 {
		return sel
	}
	first := monthKey(sel[0])
	kept := make([]model.MonthData, 0, len(sel))
	for _, m := range sel {
		k := monthKey(m)
		if k == first || k == current {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		return sel
	}
	return kept
}

// cumulativeThrough returns cumulative hours at the last month not after
// to. A zero to means the whole list.
func cumulativeThrough(months []model.MonthData, to calendar.Key) float64 {
	var used float64
	for _, m := range months {
		if to != (calendar.Key{}) && to.Before(monthKey(m)) {
			break
		}
		used = m.CumulativeHours
	}
	return used
}

func summaryBounds(sel []model.MonthData, from, to calendar.Key) (time.Time, time.Time) {
	var start, end time.Time
	if from != (calendar.Key{}) {
		start = from.Start()
	} else if len(sel) > 0 {
		start = monthKey(sel[0]).Start()
	}
	if to != (calendar.Key{}) {
		end = to.Start().AddDate(0, 1, -1)
	} else if len(sel) > 0 {
		end = monthKey(sel[len(sel)-1]).Start().AddDate(0, 1, -1)
	}
	return start, end
}
