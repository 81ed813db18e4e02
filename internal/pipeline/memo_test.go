package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/query"
)

func TestMemo_HitsAndInvalidation(t *testing.T) {
	m := NewMemo(nil)
	cfg := testConfig("2024-12-01")
	entries := []model.TimeEntry{entry("2024-03-01", 5)}

	first, err := m.Run("PERIOD all-time", "v1", entries, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first.Summary.TotalHours != 5 {
		t.Fatalf("hours = %v, want 5", first.Summary.TotalHours)
	}

	// Same text and version: the stored result wins even if entries differ.
	more := append(entries, entry("2024-03-02", 7))
	again, err := m.Run("PERIOD all-time", "v1", more, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if again.Summary.TotalHours != 5 {
		t.Errorf("expected memoized result, got %v hours", again.Summary.TotalHours)
	}

	// New version recomputes.
	next, err := m.Run("PERIOD all-time", "v2", more, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if next.Summary.TotalHours != 12 {
		t.Errorf("hours after version bump = %v, want 12", next.Summary.TotalHours)
	}

	st := m.Stats()
	if st.Hits != 1 || st.Misses != 2 || st.Entries != 2 {
		t.Errorf("stats = %+v", st)
	}

	m.Invalidate()
	if st := m.Stats(); st.Entries != 0 {
		t.Errorf("entries after Invalidate = %d", st.Entries)
	}
	recomputed, _ := m.Run("PERIOD all-time", "v1", more, cfg)
	if recomputed.Summary.TotalHours != 12 {
		t.Errorf("hours after Invalidate = %v, want 12", recomputed.Summary.TotalHours)
	}
}

func TestMemo_CompileErrors(t *testing.T) {
	qc := query.NewCache()
	m := NewMemo(qc)
	_, err := m.Run("CHART trend", "v1", nil, testConfig("2024-01-01"))
	if !errors.Is(err, query.ErrIncompatibleChart) {
		t.Errorf("error = %v, want ErrIncompatibleChart", err)
	}
	if m.Stats().Entries != 0 {
		t.Error("failed queries must not be stored")
	}
	if qc.Len() != 1 {
		t.Errorf("shared parse cache len = %d, want 1", qc.Len())
	}
}

func TestMemo_ConfigIsPartOfKey(t *testing.T) {
	m := NewMemo(nil)
	entries := []model.TimeEntry{entry("2024-03-04", 84)}

	eight := testConfig("2024-12-01")
	four := eight
	four.HoursPerWorkday = 4

	a, err := m.Run("PERIOD all-time", "v1", entries, eight)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Run("PERIOD all-time", "v1", entries, four)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.MonthlyData) != 1 || len(b.MonthlyData) != 1 {
		t.Fatalf("months = %d, %d", len(a.MonthlyData), len(b.MonthlyData))
	}
	if b.MonthlyData[0].Utilization != 2*a.MonthlyData[0].Utilization {
		t.Errorf("utilization with 4h days = %v, want double %v", b.MonthlyData[0].Utilization, a.MonthlyData[0].Utilization)
	}
	if st := m.Stats(); st.Misses != 2 || st.Hits != 0 {
		t.Errorf("stats = %+v, want two misses", st)
	}
}

func TestMemo_EvictsLeastRecentlyUsed(t *testing.T) {
	m := NewMemoWithLimit(nil, 2)
	cfg := testConfig("2024-12-01")
	entries := []model.TimeEntry{entry("2024-03-01", 5)}

	run := func(text string) {
		t.Helper()
		if _, err := m.Run(text, "v1", entries, cfg); err != nil {
			t.Fatalf("Run(%q): %v", text, err)
		}
	}
	run("VIEW table")
	run("VIEW full")
	run("VIEW table")
	run("SIZE compact")

	st := m.Stats()
	if st.Entries != 2 || st.Evictions != 1 {
		t.Fatalf("stats = %+v, want 2 entries and 1 eviction", st)
	}
	run("VIEW table")
	if got := m.Stats().Hits; got != st.Hits+1 {
		t.Errorf("VIEW table evicted: hits %d -> %d", st.Hits, got)
	}

	for i := 0; i < 300; i++ {
		run(fmt.Sprintf("WHERE hours != %d", i))
	}
	if n := m.Stats().Entries; n != 2 {
		t.Errorf("entries = %d, want 2", n)
	}
}
