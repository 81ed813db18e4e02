// Package model defines domain types for timeq entries and report data.
package model

import "time"

// TimeEntry is one recorded block of work. Rate is optional; a nil rate
// falls back to the project's default rate during aggregation.
type TimeEntry struct {
	Date    time.Time `json:"date" yaml:"date"`
	Hours   float64   `json:"hours" yaml:"hours"`
	Rate    *float64  `json:"rate,omitempty" yaml:"rate,omitempty"`
	Project string    `json:"project,omitempty" yaml:"project,omitempty"`
	Notes   string    `json:"notes,omitempty" yaml:"notes,omitempty"`

	// Source is the file the entry was read from. Not part of any filter.
	Source string `json:"-" yaml:"-"`
}

// RateOr returns the entry's rate, or fallback when none was recorded.
func (e TimeEntry) RateOr(fallback float64) float64 {
	if e.Rate == nil {
		return fallback
	}
	return *e.Rate
}
