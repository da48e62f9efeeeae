// Package timefmt renders timestamps relative to now for narrow columns.
package timefmt

import (
	"fmt"
	"time"
)

// Relative renders t as "12s ago", "in 3m" or "now". The zero time renders
// as "-".
func Relative(now, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d > -time.Second && d < time.Second:
		return "now"
	case d > 0:
		return short(d) + " ago"
	default:
		return "in " + short(-d)
	}
}

// short renders d with one unit, rounding down.
func short(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
}

// Clock renders t in local time, adding the date when it is not today.
func Clock(now, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	lt, ln := t.Local(), now.Local()
	if lt.YearDay() == ln.YearDay() && lt.Year() == ln.Year() {
		return lt.Format("15:04:05")
	}
	return lt.Format("Jan 02 15:04")
}
