package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	interval := 5 * time.Minute
	maxBackoff := time.Hour

	tests := []struct {
		failures int
		expected time.Duration
	}{
		{0, 5 * time.Minute},
		{1, 5 * time.Minute},
		{2, 10 * time.Minute},
		{3, 20 * time.Minute},
		{4, 40 * time.Minute},
		{5, time.Hour},
		{50, time.Hour},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Backoff(interval, maxBackoff, tt.failures), "failures=%d", tt.failures)
	}
}

func TestBackoff_StrictlyIncreasesUntilCap(t *testing.T) {
	interval := 30 * time.Second
	maxBackoff := 10 * time.Minute

	prev := Backoff(interval, maxBackoff, 1)
	for n := 2; n < 20; n++ {
		cur := Backoff(interval, maxBackoff, n)
		if prev < maxBackoff {
			assert.Greater(t, cur, prev, "failures=%d", n)
		} else {
			assert.Equal(t, maxBackoff, cur)
		}
		prev = cur
	}
}

func TestBackoff_NeverBelowInterval(t *testing.T) {
	// A max backoff shorter than the interval must not speed polling up.
	assert.Equal(t, 5*time.Minute, Backoff(5*time.Minute, time.Minute, 3))
}

func TestPollState_NextDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	never := PollState{UserID: "a"}
	assert.True(t, never.NextDue(5*time.Minute, time.Hour).IsZero())
	assert.True(t, never.DueAt(now, 5*time.Minute, time.Hour))

	ok := PollState{UserID: "a", LastFetchAt: now}
	assert.Equal(t, now.Add(5*time.Minute), ok.NextDue(5*time.Minute, time.Hour))
	assert.False(t, ok.DueAt(now.Add(4*time.Minute), 5*time.Minute, time.Hour))
	assert.True(t, ok.DueAt(now.Add(5*time.Minute), 5*time.Minute, time.Hour))

	failing := PollState{UserID: "a", LastFetchAt: now, ConsecutiveFailures: 3}
	assert.Equal(t, now.Add(20*time.Minute), failing.NextDue(5*time.Minute, time.Hour))
}

func TestPollState_SuspendedIsNeverDue(t *testing.T) {
	s := PollState{UserID: "a", Suspension: SuspensionHalted}
	assert.True(t, s.Suspended())
	assert.False(t, s.DueAt(time.Now().Add(24*time.Hour), time.Minute, time.Hour))

	s.Suspension = SuspensionNone
	assert.False(t, s.Suspended())
}

func TestEffectiveInterval(t *testing.T) {
	// 100 users sharing 10 req/min cannot poll more often than every 10 minutes.
	assert.Equal(t, 10*time.Minute, EffectiveInterval(5*time.Minute, 100, 10))
	assert.Equal(t, 5*time.Minute, EffectiveInterval(5*time.Minute, 10, 10))
	assert.Equal(t, 5*time.Minute, EffectiveInterval(5*time.Minute, 100, 0))
	assert.Equal(t, 5*time.Minute, EffectiveInterval(5*time.Minute, 0, 10))
}
