package cli

import "testing"

func TestFormatHours(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0h"},
		{12, "12h"},
		{7.25, "7.3h"},
		{1234.5, "1,234.5h"},
		{-0.5, "-0.5h"},
		{-1.5, "-1.5h"},
		{2.04, "2h"},
	}
	for _, tt := range tests {
		if got := FormatHours(tt.in); got != tt.want {
			t.Errorf("FormatHours(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		sym  string
		in   float64
		want string
	}{
		{"$", 0, "$0.00"},
		{"$", 65.5, "$65.50"},
		{"€", 999.994, "€999.99"},
		{"$", 12345.6, "$12,346"},
		{"$", -20, "-$20.00"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.sym, tt.in); got != tt.want {
			t.Errorf("FormatMoney(%q, %v) = %q, want %q", tt.sym, tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(0.8696); got != "87.0%" {
		t.Errorf("FormatPercent(0.8696) = %q", got)
	}
	if got := FormatPercent(1.25); got != "125.0%" {
		t.Errorf("FormatPercent(1.25) = %q", got)
	}
}

func TestFormatDelta(t *testing.T) {
	if got := FormatDelta(10, 7.5); got != "+2.5h" {
		t.Errorf("FormatDelta = %q", got)
	}
	if got := FormatDelta(3, 5); got != "-2h" {
		t.Errorf("FormatDelta = %q", got)
	}
}

func TestFormatDeadline(t *testing.T) {
	tests := map[int]string{0: "today", 1: "in 1 day", 20: "in 20 days", -1: "1 day ago", -3: "3 days ago"}
	for in, want := range tests {
		if got := FormatDeadline(in); got != want {
			t.Errorf("FormatDeadline(%d) = %q, want %q", in, got, want)
		}
	}
}
