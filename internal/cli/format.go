// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatHours formats an hour total with at most one decimal.
// e.g., 12 -> "12h", 7.25 -> "7.3h", 1234.5 -> "1,234.5h"
func FormatHours(h float64) string {
	r := math.Round(h*10) / 10
	if r == math.Trunc(r) {
		return FormatNumber(int64(r)) + "h"
	}
	whole := math.Trunc(r)
	frac := int64(math.Round(math.Abs(r-whole) * 10))
	sign := ""
	if r < 0 && whole == 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%dh", sign, FormatNumber(int64(whole)), frac)
}

// FormatMoney formats an amount with the currency symbol.
// Amounts of 1000 or more drop the cents.
func FormatMoney(symbol string, v float64) string {
	if v < 0 {
		return "-" + FormatMoney(symbol, -v)
	}
	if v >= 1000 {
		return symbol + FormatNumber(int64(math.Round(v)))
	}
	return fmt.Sprintf("%s%.2f", symbol, v)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string. Reports keep
// utilization as a fraction; this is the only place it becomes a percent.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatDelta formats an hour delta with sign.
func FormatDelta(current, previous float64) string {
	delta := current - previous
	if delta >= 0 {
		return "+" + FormatHours(delta)
	}
	return "-" + FormatHours(-delta)
}

// FormatDeadline describes a day count relative to today.
func FormatDeadline(days int) string {
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "in 1 day"
	case days > 1:
		return fmt.Sprintf("in %d days", days)
	case days == -1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", -days)
	}
}
