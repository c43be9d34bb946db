package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the day-month-year format used for period dates at the wire boundary.
const DateLayout = "02-01-2006"

// ParseDate parses a dd-mm-yyyy string into a calendar date at UTC midnight.
// Calendar-invalid dates such as 31-04-2025 are rejected.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected dd-mm-yyyy", s)
	}
	return t, nil
}

// FormatDate renders a calendar date as dd-mm-yyyy.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOf truncates t to its calendar date in t's own location, expressed at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
