package driven

import (
	"context"
	"iter"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// SampleStore persists heart-rate samples.
// Samples are unique per (UserID, ObservedAt) and never modified.
type SampleStore interface {
	// Append stores a sample. Returns false without error when a sample
	// with the same user and observation time already exists.
	Append(ctx context.Context, sample domain.Sample) (bool, error)

	// AppendEvaluated stores a sample together with the baseline that
	// results from absorbing it, in one transaction. When the sample is
	// a duplicate neither is written and false is returned.
	AppendEvaluated(ctx context.Context, sample domain.Sample, next domain.Baseline) (bool, error)

	// Last returns the most recent sample for a user, or nil if none.
	Last(ctx context.Context, userID string) (*domain.Sample, error)

	// Range yields a user's samples with from <= ObservedAt < to in
	// ascending order. Rows are read lazily in pages; every iteration
	// runs a fresh query. A failed page is yielded as an error and ends
	// the sequence.
	Range(ctx context.Context, userID string, from, to time.Time) iter.Seq2[domain.Sample, error]

	// Prune deletes samples observed before the cutoff and returns how
	// many were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// BaselineStore persists per-user baselines.
type BaselineStore interface {
	// GetBaseline returns the user's baseline, or nil if none exists yet.
	GetBaseline(ctx context.Context, userID string) (*domain.Baseline, error)

	// PutBaseline creates or replaces a baseline.
	PutBaseline(ctx context.Context, baseline domain.Baseline) error
}
