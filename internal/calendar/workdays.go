// Package calendar provides working-day and target-hour arithmetic.
package calendar

import (
	"fmt"
	"time"
)

// WorkingDaysInMonth counts Monday-Friday days in the given month.
// Holidays are not modeled.
func WorkingDaysInMonth(year int, month time.Month) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := DaysInMonth(year, month)

	count := 0
	wd := first.Weekday()
	for d := 0; d < days; d++ {
		if wd != time.Saturday && wd != time.Sunday {
			count++
		}
		wd = (wd + 1) % 7
	}
	return count
}

// TargetHours returns the expected hours for a month given a daily target.
func TargetHours(year int, month time.Month, hoursPerWorkday float64) float64 {
	return float64(WorkingDaysInMonth(year, month)) * hoursPerWorkday
}

// DaysInMonth returns the number of calendar days in the month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths shifts a month start by n months (n may be negative).
func AddMonths(t time.Time, n int) time.Time {
	start := MonthStart(t)
	return start.AddDate(0, n, 0)
}

// Key identifies a calendar month.
type Key struct {
	Year  int
	Month time.Month
}

// KeyOf returns the month key of t.
func KeyOf(t time.Time) Key {
	return Key{Year: t.Year(), Month: t.Month()}
}

// Before reports whether k is chronologically earlier than other.
func (k Key) Before(other Key) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// Start returns the first instant of the month.
func (k Key) Start() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Label returns a short display label like "Mar 2024".
func (k Key) Label() string {
	return k.Start().Format("Jan 2006")
}

// String returns the "2006-01" form.
func (k Key) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
