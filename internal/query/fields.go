package query

import "strings"

type fieldType int

const (
	fieldString fieldType = iota
	fieldNumber
	fieldDate
	fieldMonth
)

func (t fieldType) String() string {
	switch t {
	case fieldNumber:
		return "number"
	case fieldDate:
		return "date"
	case fieldMonth:
		return "month"
	}
	return "string"
}

type fieldDef struct {
	name string
	typ  fieldType
}

// whereFields maps every accepted WHERE name (including aliases) to its
// canonical field.
var whereFields = map[string]fieldDef{
	"year":    {"year", fieldNumber},
	"month":   {"month", fieldMonth},
	"date":    {"date", fieldDate},
	"project": {"project", fieldString},
	"client":  {"project", fieldString},
	"hours":   {"hours", fieldNumber},
	"rate":    {"rate", fieldNumber},
	"notes":   {"notes", fieldString},
}

// ShowFields lists the columns a SHOW clause may name.
var ShowFields = []string{
	"date", "project", "hours", "invoiced", "rate",
	"utilization", "cumulative", "budget", "notes",
}

func lookupWhereField(name string) (fieldDef, bool) {
	def, ok := whereFields[strings.ToLower(name)]
	return def, ok
}

func isShowField(name string) bool {
	for _, f := range ShowFields {
		if f == name {
			return true
		}
	}
	return false
}

var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7,
	"aug": 8, "sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
}
