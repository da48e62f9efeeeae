package domain

import (
	"fmt"
	"time"
)

// Reading is a heart-rate measurement as returned by the vendor API,
// before it is accepted into the sample store.
type Reading struct {
	BPM        int
	ObservedAt time.Time
	// Source is the vendor's label for how the reading was taken
	// (e.g. "awake", "rest", "workout").
	Source string
}

// Sample is a stored heart-rate reading. Samples are immutable once
// written and unique per (UserID, ObservedAt).
type Sample struct {
	UserID     string    `json:"user_id"`
	BPM        int       `json:"bpm"`
	ObservedAt time.Time `json:"observed_at"`
	FetchedAt  time.Time `json:"fetched_at"`
	Source     string    `json:"source,omitempty"`

	// BaselineBPM is the baseline the sample was compared against.
	// Zero for the sample that seeded the baseline.
	BaselineBPM float64 `json:"baseline_bpm,omitempty"`
	// Anomalous records the detection verdict for the sample.
	Anomalous bool `json:"anomalous"`
}

// Validate checks the sample invariants.
func (s *Sample) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}
	if s.BPM <= 0 {
		return fmt.Errorf("%w: bpm must be positive, got %d", ErrInvalidInput, s.BPM)
	}
	if s.ObservedAt.IsZero() {
		return fmt.Errorf("%w: missing observation time", ErrInvalidInput)
	}
	return nil
}

// IgnoredSources lists reading sources that never enter the sample store.
// Workout and sleep heart rates are not comparable with a resting baseline.
var IgnoredSources = map[string]bool{
	"workout": true,
	"sleep":   true,
}

// Accepts reports whether r should be considered for storage.
func (r Reading) Accepts() bool {
	return r.BPM > 0 && !r.ObservedAt.IsZero() && !IgnoredSources[r.Source]
}

// AnomalyEvent is emitted when a sample spikes above the user's baseline.
type AnomalyEvent struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	BPM         int       `json:"bpm"`
	BaselineBPM float64   `json:"baseline_bpm"`
	Deviation   float64   `json:"deviation"`
	ObservedAt  time.Time `json:"observed_at"`
}
