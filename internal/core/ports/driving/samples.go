package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// SampleService provides read access to stored heart-rate data.
type SampleService interface {
	// Latest returns the most recent sample for a user, or nil.
	Latest(ctx context.Context, userID string) (*domain.Sample, error)

	// List returns up to limit samples in [from, to), oldest first.
	// A non-positive limit returns everything in the window.
	List(ctx context.Context, userID string, from, to time.Time, limit int) ([]domain.Sample, error)

	// Baseline returns the user's baseline, or nil if not yet seeded.
	Baseline(ctx context.Context, userID string) (*domain.Baseline, error)

	// History returns the user's most recent poll cycles.
	History(ctx context.Context, userID string, limit int) ([]domain.PollRecord, error)
}
