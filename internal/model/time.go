package model

import (
	"regexp"
	"time"
)

// timestampLayout matches the ISO-8601 strings produced by the UI
// (millisecond precision, UTC "Z" suffix).
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DefaultDueTime is appended to date-only due dates.
const DefaultDueTime = "T10:00:00Z"

var dateOnlyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// FormatTimestamp renders t as a UTC timestamp string.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// IsDateOnly reports whether s is a bare YYYY-MM-DD date.
func IsDateOnly(s string) bool {
	return dateOnlyPattern.MatchString(s)
}

// NormalizeDueDate expands a bare date to a full timestamp at the default
// time of day. Any other value is returned unchanged.
func NormalizeDueDate(s string) string {
	if IsDateOnly(s) {
		return s + DefaultDueTime
	}
	return s
}

// ParseDueDate parses a due date in any of the forms the store accepts.
func ParseDueDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, NormalizeDueDate(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
