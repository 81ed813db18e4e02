package calendar_test

import (
	"testing"
	"time"

	"github.com/theirongolddev/timeq/internal/calendar"
)

func TestWorkingDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.July, 23},     // starts Monday, 31 days
		{2024, time.February, 21}, // leap year, starts Thursday
		{2023, time.February, 20},
		{2026, time.February, 20}, // starts Sunday, exactly four weeks
		{2024, time.June, 20},     // starts Saturday, 30 days
		{2025, time.March, 21},
	}
	for _, tt := range tests {
		got := calendar.WorkingDaysInMonth(tt.year, tt.month)
		if got != tt.want {
			t.Errorf("WorkingDaysInMonth(%d, %s) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestTargetHours(t *testing.T) {
	got := calendar.TargetHours(2024, time.July, 8)
	if got != 184 {
		t.Errorf("TargetHours(2024, July, 8) = %v, want 184", got)
	}
	if got := calendar.TargetHours(2024, time.July, 0); got != 0 {
		t.Errorf("TargetHours with zero workday = %v, want 0", got)
	}
}

func TestDaysInMonth(t *testing.T) {
	if got := calendar.DaysInMonth(2024, time.February); got != 29 {
		t.Errorf("DaysInMonth(2024, Feb) = %d, want 29", got)
	}
	if got := calendar.DaysInMonth(2025, time.December); got != 31 {
		t.Errorf("DaysInMonth(2025, Dec) = %d, want 31", got)
	}
}

func TestAddMonths(t *testing.T) {
	base := time.Date(2026, 1, 31, 15, 0, 0, 0, time.UTC)
	got := calendar.AddMonths(base, -5)
	want := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("AddMonths(-5) = %v, want %v", got, want)
	}
}

func TestKeyOrdering(t *testing.T) {
	a := calendar.Key{Year: 2024, Month: time.December}
	b := calendar.Key{Year: 2025, Month: time.January}
	if !a.Before(b) || b.Before(a) {
		t.Error("expected Dec 2024 before Jan 2025")
	}
	if a.Label() != "Dec 2024" {
		t.Errorf("Label = %q, want %q", a.Label(), "Dec 2024")
	}
	if b.String() != "2025-01" {
		t.Errorf("String = %q, want %q", b.String(), "2025-01")
	}
}
