package driven

import (
	"context"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// PollStateStore persists scheduler state for crash recovery.
// It stores per-user poll state and cycle history.
type PollStateStore interface {
	// GetPollState retrieves a user's poll state.
	// Returns nil and no error if the user has never been polled.
	GetPollState(ctx context.Context, userID string) (*domain.PollState, error)

	// ListPollStates returns all stored poll states.
	ListPollStates(ctx context.Context) ([]domain.PollState, error)

	// SavePollState persists a user's poll state.
	SavePollState(ctx context.Context, state *domain.PollState) error

	// DeletePollState removes a user's poll state and history.
	DeletePollState(ctx context.Context, userID string) error

	// RecordPoll logs a completed cycle.
	RecordPoll(ctx context.Context, record *domain.PollRecord) error

	// GetPollHistory returns recent cycles for a user.
	// Results are ordered by start time descending (most recent first).
	GetPollHistory(ctx context.Context, userID string, limit int) ([]domain.PollRecord, error)

	// PruneHistory removes old records beyond the retention limit.
	// Keeps the most recent 'keep' records per user.
	PruneHistory(ctx context.Context, keep int) error
}
