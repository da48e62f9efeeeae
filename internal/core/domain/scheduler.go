package domain

import "time"

// PollPhase is a user's position in the poll cycle state machine:
// IDLE -> DUE -> FETCHING -> {SUCCEEDED, FAILED} -> IDLE.
type PollPhase string

// Poll cycle phases.
const (
	PhaseIdle      PollPhase = "idle"
	PhaseDue       PollPhase = "due"
	PhaseFetching  PollPhase = "fetching"
	PhaseSucceeded PollPhase = "succeeded"
	PhaseFailed    PollPhase = "failed"
	// PhaseSuspended means the user is not scheduled until an external
	// action (new credentials or operator resume) clears the suspension.
	PhaseSuspended PollPhase = "suspended"
)

// PollStatus is the outcome of the most recent completed cycle.
type PollStatus string

// Poll outcomes.
const (
	StatusNever     PollStatus = ""
	StatusSucceeded PollStatus = "succeeded"
	StatusFailed    PollStatus = "failed"
)

// Suspension explains why a user is no longer scheduled.
type Suspension string

// Suspension reasons.
const (
	SuspensionNone Suspension = ""
	// SuspensionNeedsReauth is lifted when the user's credential is replaced.
	SuspensionNeedsReauth Suspension = "needs_reauth"
	// SuspensionHalted is lifted only by an operator.
	SuspensionHalted Suspension = "halted"
)

// PollState is the scheduler's persistent bookkeeping for one user.
type PollState struct {
	UserID              string
	LastFetchAt         time.Time
	LastStatus          PollStatus
	ConsecutiveFailures int
	LastError           string
	Suspension          Suspension
	SuspendedAt         time.Time
}

// Suspended reports whether the user is excluded from scheduling.
func (s *PollState) Suspended() bool {
	return s.Suspension != SuspensionNone
}

// Backoff returns the wait after n consecutive failures:
// interval * 2^(n-1), capped at maxBackoff and never below interval.
func Backoff(interval, maxBackoff time.Duration, n int) time.Duration {
	if n <= 0 {
		return interval
	}
	d := interval
	for i := 1; i < n; i++ {
		d *= 2
		if d >= maxBackoff || d <= 0 {
			d = maxBackoff
			break
		}
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	if d < interval {
		d = interval
	}
	return d
}

// NextDue returns when the user becomes eligible for the next cycle.
// A user that has never been polled is due immediately.
func (s *PollState) NextDue(interval, maxBackoff time.Duration) time.Time {
	if s.LastFetchAt.IsZero() {
		return time.Time{}
	}
	return s.LastFetchAt.Add(Backoff(interval, maxBackoff, s.ConsecutiveFailures))
}

// DueAt reports whether the IDLE -> DUE transition fires at now.
func (s *PollState) DueAt(now time.Time, interval, maxBackoff time.Duration) bool {
	if s.Suspended() {
		return false
	}
	return !now.Before(s.NextDue(interval, maxBackoff))
}

// EffectiveInterval raises interval to the floor imposed by the remote
// API's rate budget (requests per minute) shared by activeUsers.
// A non-positive budget disables the floor.
func EffectiveInterval(interval time.Duration, activeUsers int, budgetPerMinute float64) time.Duration {
	if budgetPerMinute <= 0 || activeUsers <= 0 {
		return interval
	}
	floor := time.Duration(float64(activeUsers) / budgetPerMinute * float64(time.Minute))
	if interval < floor {
		return floor
	}
	return interval
}

// PollRecord is the history entry for one completed cycle.
type PollRecord struct {
	UserID        string
	StartedAt     time.Time
	EndedAt       time.Time
	Status        PollStatus
	Error         string
	SamplesStored int
	Anomalies     int
}

// PollFailure is surfaced upward when a user stops being scheduled.
type PollFailure struct {
	UserID     string
	Suspension Suspension
	Err        error
	At         time.Time
}

// UserSnapshot is a point-in-time view of one user's scheduling state.
type UserSnapshot struct {
	UserID  string
	Phase   PollPhase
	State   PollState
	NextDue time.Time
}
