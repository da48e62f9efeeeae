package driving

import (
	"context"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// Scheduler drives the per-user poll cycles.
type Scheduler interface {
	// Start begins dispatching due users.
	// Blocks until Stop is called or the context is cancelled.
	Start(ctx context.Context) error

	// Stop stops dispatching and waits for in-flight cycles, cancelling
	// them once the shutdown grace period runs out.
	Stop() error

	// PollNow runs one cycle for the user synchronously. Returns
	// domain.ErrPollInProgress if a cycle for the user is already running.
	PollNow(ctx context.Context, userID string) (*domain.PollRecord, error)

	// Resume clears a user's suspension and failure count.
	Resume(ctx context.Context, userID string) error

	// Snapshot returns the live scheduling state of every active user.
	Snapshot(ctx context.Context) ([]domain.UserSnapshot, error)

	// Failures surfaces users that stopped being scheduled.
	Failures() <-chan domain.PollFailure
}
