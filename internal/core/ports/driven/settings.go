package driven

import (
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// SettingsProvider supplies configuration to core services.
// Implementations may reload configuration at any time; callers read it
// again on every use instead of caching it.
type SettingsProvider interface {
	// Polling returns the engine-wide polling configuration.
	Polling() domain.PollingConfig

	// UserSettings returns the effective settings for a user, falling
	// back to defaults for anything not overridden.
	UserSettings(userID string) domain.UserSettings
}

// PollPolicy decides whether a due user is polled and whether anomalies
// are emitted, based on the user and the current time.
type PollPolicy interface {
	Decide(userID string, now time.Time) domain.PolicyDecision
}
