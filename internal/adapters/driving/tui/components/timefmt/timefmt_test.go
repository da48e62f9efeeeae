package timefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelative(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "-"},
		{"now", now, "now"},
		{"seconds ago", now.Add(-12 * time.Second), "12s ago"},
		{"minutes ago", now.Add(-3*time.Minute - 20*time.Second), "3m ago"},
		{"hours ago", now.Add(-5 * time.Hour), "5h ago"},
		{"days ago", now.Add(-72 * time.Hour), "3d ago"},
		{"future", now.Add(90 * time.Second), "in 1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Relative(now, tt.t))
		})
	}
}

func TestClock(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local)

	assert.Equal(t, "-", Clock(now, time.Time{}))
	assert.Equal(t, "09:15:00", Clock(now, time.Date(2026, 3, 2, 9, 15, 0, 0, time.Local)))
	assert.Equal(t, "Feb 27 09:15", Clock(now, time.Date(2026, 2, 27, 9, 15, 0, 0, time.Local)))
}
