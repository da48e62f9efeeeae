package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// BaselineTracker scores heart-rate samples against each user's
// moving-average baseline.
type BaselineTracker interface {
	// Evaluate scores bpm against the user's current baseline without
	// storing anything.
	Evaluate(ctx context.Context, userID string, bpm int, observedAt time.Time) (domain.Evaluation, error)

	// Record scores a sample and commits it with the updated baseline.
	// Returns false when the sample was already stored, in which case
	// the baseline is left untouched.
	Record(ctx context.Context, sample domain.Sample) (domain.Evaluation, bool, error)
}
