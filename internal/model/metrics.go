package model

import "time"

// MonthData holds metrics for one calendar month with at least one entry.
// Utilization is a fraction (hours / target hours), never a percentage.
type MonthData struct {
	Year            int          `json:"year"`
	Month           time.Month   `json:"month"`
	Label           string       `json:"label"`
	Entries         int          `json:"entries"`
	Hours           float64      `json:"hours"`
	Invoiced        float64      `json:"invoiced"`
	Rate            float64      `json:"rate"`
	TargetHours     float64      `json:"targetHours"`
	Utilization     float64      `json:"utilization"`
	CumulativeHours float64      `json:"cumulativeHours"`
	Budget          *BudgetStats `json:"budget,omitempty"`
}

// SummaryData is a reduction over a set of entries.
type SummaryData struct {
	From          time.Time    `json:"from"`
	To            time.Time    `json:"to"`
	Entries       int          `json:"entries"`
	Months        int          `json:"months"`
	TotalHours    float64      `json:"totalHours"`
	TotalInvoiced float64      `json:"totalInvoiced"`
	AverageRate   float64      `json:"averageRate"`
	Utilization   float64      `json:"utilization"`
	Budget        *BudgetStats `json:"budget,omitempty"`

	// DaysToDeadline is set when the project has a deadline; negative once passed.
	DaysToDeadline *int `json:"daysToDeadline,omitempty"`
}

// TrendData holds chronologically ordered parallel series for charting.
type TrendData struct {
	Labels      []string  `json:"labels"`
	Hours       []float64 `json:"hours"`
	Utilization []float64 `json:"utilization"`
	Invoiced    []float64 `json:"invoiced"`
}

// Len returns the number of points in the series.
func (t TrendData) Len() int {
	return len(t.Labels)
}

// ProcessedData is the executor's complete output.
type ProcessedData struct {
	Entries        []TimeEntry    `json:"entries"`
	MonthlyData    []MonthData    `json:"monthlyData"`
	TrendData      TrendData      `json:"trendData"`
	Projects       []ProjectStats `json:"projects"`
	Summary        SummaryData    `json:"summary"`
	YearSummary    SummaryData    `json:"yearSummary"`
	AllTimeSummary SummaryData    `json:"allTimeSummary"`
}

// ProjectStats holds per-project totals. Share is a fraction of all hours.
type ProjectStats struct {
	Project  string  `json:"project"`
	Entries  int     `json:"entries"`
	Hours    float64 `json:"hours"`
	Invoiced float64 `json:"invoiced"`
	Share    float64 `json:"share"`
}
