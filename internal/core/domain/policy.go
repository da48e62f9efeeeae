package domain

// PolicyDecision tells the scheduler how to treat a user right now.
type PolicyDecision struct {
	// SkipPoll defers the cycle without touching the user's poll state.
	SkipPoll bool
	// SuppressNotify records anomalies but emits no event.
	SuppressNotify bool
	// Reason is a short label for logs.
	Reason string
}

// Allow is the decision that changes nothing.
var Allow = PolicyDecision{}

// QuietHoursMode selects what a quiet-hours window suppresses.
type QuietHoursMode string

// Quiet-hours modes.
const (
	// QuietSuppressPoll skips cycles inside the window.
	QuietSuppressPoll QuietHoursMode = "suppress_poll"
	// QuietSuppressNotify keeps polling but emits no anomaly events.
	QuietSuppressNotify QuietHoursMode = "suppress_notify"
)

// QuietHours configures time-of-day windows during which polling or
// notification is suppressed.
type QuietHours struct {
	// Timezone is an IANA zone name such as "America/Los_Angeles".
	// Empty means UTC.
	Timezone string
	// Windows are local "HH:MM-HH:MM" ranges, start inclusive and end
	// exclusive. A range whose end is before its start wraps midnight.
	Windows []string
	Mode    QuietHoursMode
	// Users limits the policy to these user IDs. Empty applies to all.
	Users []string
}
