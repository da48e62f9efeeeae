package sqlite

import (
	"database/sql"
	"time"
)

// formatTime formats t as RFC3339 with nanoseconds in UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a value written by formatTime.
// Returns zero time if the string is empty or invalid.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// formatNullableTime formats a time, or returns nil for zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseNullableTime parses a nullable time column.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	return parseTime(s.String)
}

// unixNano converts a time to the integer column representation.
func unixNano(t time.Time) int64 {
	return t.UnixNano()
}

// fromUnixNano converts an integer column back to a UTC time.
func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullFloat returns nil for zero, otherwise the value.
func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
