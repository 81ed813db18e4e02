package pipeline

import (
	"github.com/theirongolddev/timeq/internal/calendar"
	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/query"
)

// Filter returns the entries satisfying every predicate in where. An entry
// lacking the filtered field (no project, no rate) matches only != tests.
func Filter(entries []model.TimeEntry, where query.FilterMap, defaultRate float64) []model.TimeEntry {
	if len(where) == 0 {
		return entries
	}

	var result []model.TimeEntry
	for _, e := range entries {
		if matchesAll(e, where, defaultRate) {
			result = append(result, e)
		}
	}
	return result
}

func matchesAll(e model.TimeEntry, where query.FilterMap, defaultRate float64) bool {
	for field, preds := range where {
		v, ok := entryValue(e, field, defaultRate)
		for _, p := range preds {
			if !ok {
				if p.Op != query.OpNEQ {
					return false
				}
				continue
			}
			if !p.Matches(v) {
				return false
			}
		}
	}
	return true
}

// entryValue extracts a field as a typed value. ok is false when the
// entry has no value for the field.
func entryValue(e model.TimeEntry, field string, defaultRate float64) (query.Value, bool) {
	switch field {
	case "year":
		if e.Date.IsZero() {
			return query.Value{}, false
		}
		return query.NumberValue(float64(e.Date.Year())), true
	case "month":
		if e.Date.IsZero() {
			return query.Value{}, false
		}
		return query.NumberValue(float64(e.Date.Month())), true
	case "date":
		if e.Date.IsZero() {
			return query.Value{}, false
		}
		return query.DateValue(calendar.Day(e.Date)), true
	case "hours":
		return query.NumberValue(e.Hours), true
	case "rate":
		if e.Rate == nil && defaultRate <= 0 {
			return query.Value{}, false
		}
		return query.NumberValue(e.RateOr(defaultRate)), true
	case "project":
		if e.Project == "" {
			return query.Value{}, false
		}
		return query.StringValue(e.Project), true
	case "notes":
		if e.Notes == "" {
			return query.Value{}, false
		}
		return query.StringValue(e.Notes), true
	}
	return query.Value{}, false
}

// FilterMonths keeps entries whose month lies within [from, to]. A zero key
// leaves that side open.
func FilterMonths(entries []model.TimeEntry, from, to calendar.Key) []model.TimeEntry {
	var result []model.TimeEntry
	for _, e := range entries {
		if inWindow(calendar.KeyOf(e.Date), from, to) {
			result = append(result, e)
		}
	}
	return result
}

func inWindow(k, from, to calendar.Key) bool {
	if from != (calendar.Key{}) && k.Before(from) {
		return false
	}
	if to != (calendar.Key{}) && to.Before(k) {
		return false
	}
	return true
}
