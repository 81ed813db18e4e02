// Package pipeline orchestrates entry loading, caching, and report aggregation.
package pipeline

import (
	"sort"
	"strings"

	"github.com/theirongolddev/timeq/internal/calendar"
	"github.com/theirongolddev/timeq/internal/model"
)

// AggregateMonths buckets entries by calendar month and computes per-month
// metrics in chronological order. CumulativeHours runs across every
// returned month; budget stats are attached when cfg carries a budget.
func AggregateMonths(entries []model.TimeEntry, cfg Config) []model.MonthData {
	monthMap := make(map[calendar.Key]*model.MonthData)

	for _, e := range entries {
		if e.Date.IsZero() {
			continue
		}
		key := calendar.KeyOf(e.Date)
		md, ok := monthMap[key]
		if !ok {
			md = &model.MonthData{
				Year:        key.Year,
				Month:       key.Month,
				Label:       key.Label(),
				TargetHours: calendar.TargetHours(key.Year, key.Month, cfg.HoursPerWorkday),
			}
			monthMap[key] = md
		}
		md.Entries++
		md.Hours += e.Hours
		md.Invoiced += e.Hours * e.RateOr(cfg.DefaultRate)
	}

	months := make([]model.MonthData, 0, len(monthMap))
	for _, md := range monthMap {
		if md.Hours > 0 {
			md.Rate = md.Invoiced / md.Hours
		}
		if md.TargetHours > 0 {
			md.Utilization = md.Hours / md.TargetHours
		}
		months = append(months, *md)
	}
	sort.Slice(months, func(i, j int) bool {
		return monthKey(months[i]).Before(monthKey(months[j]))
	})

	// Cumulative totals must be computed oldest first.
	var cumulative float64
	for i := range months {
		cumulative += months[i].Hours
		months[i].CumulativeHours = cumulative
		if cfg.hasBudget() {
			bs := model.NewBudgetStats(cfg.BudgetHours, cumulative)
			months[i].Budget = &bs
		}
	}

	return months
}

// BuildTrend projects chronologically ordered months into parallel series.
// months must already be oldest first.
func BuildTrend(months []model.MonthData) model.TrendData {
	td := model.TrendData{
		Labels:      make([]string, len(months)),
		Hours:       make([]float64, len(months)),
		Utilization: make([]float64, len(months)),
		Invoiced:    make([]float64, len(months)),
	}
	for i, m := range months {
		td.Labels[i] = m.Label
		td.Hours[i] = m.Hours
		td.Utilization[i] = m.Utilization
		td.Invoiced[i] = m.Invoiced
	}
	return td
}

// AggregateProjects computes per-project totals, sorted by hours descending.
// Entries without a project are grouped under an empty name.
func AggregateProjects(entries []model.TimeEntry, defaultRate float64) []model.ProjectStats {
	projMap := make(map[string]*model.ProjectStats)
	var total float64

	for _, e := range entries {
		key := strings.ToLower(e.Project)
		ps, ok := projMap[key]
		if !ok {
			ps = &model.ProjectStats{Project: e.Project}
			projMap[key] = ps
		}
		ps.Entries++
		ps.Hours += e.Hours
		ps.Invoiced += e.Hours * e.RateOr(defaultRate)
		total += e.Hours
	}

	projects := make([]model.ProjectStats, 0, len(projMap))
	for _, ps := range projMap {
		if total > 0 {
			ps.Share = ps.Hours / total
		}
		projects = append(projects, *ps)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Hours != projects[j].Hours {
			return projects[i].Hours > projects[j].Hours
		}
		return projects[i].Project < projects[j].Project
	})

	return projects
}

func monthKey(m model.MonthData) calendar.Key {
	return calendar.Key{Year: m.Year, Month: m.Month}
}

// reverseMonths returns a newest-first copy.
func reverseMonths(months []model.MonthData) []model.MonthData {
	out := make([]model.MonthData, len(months))
	for i, m := range months {
		out[len(months)-1-i] = m
	}
	return out
}
