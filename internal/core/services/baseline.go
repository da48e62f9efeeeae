package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driving"
)

// Ensure BaselineTracker implements the interface.
var _ driving.BaselineTracker = (*BaselineTracker)(nil)

// BaselineTracker scores samples against an exponential moving average of
// each user's heart rate.
//
// Evaluate followed by the commit in Record is a read-modify-write of the
// baseline. It is safe because the scheduler never runs two cycles for the
// same user at once.
type BaselineTracker struct {
	samples   driven.SampleStore
	baselines driven.BaselineStore
	settings  driven.SettingsProvider
}

// NewBaselineTracker creates a baseline tracker.
func NewBaselineTracker(
	samples driven.SampleStore,
	baselines driven.BaselineStore,
	settings driven.SettingsProvider,
) *BaselineTracker {
	return &BaselineTracker{
		samples:   samples,
		baselines: baselines,
		settings:  settings,
	}
}

// Evaluate scores bpm against the user's current baseline.
func (t *BaselineTracker) Evaluate(
	ctx context.Context,
	userID string,
	bpm int,
	observedAt time.Time,
) (domain.Evaluation, error) {
	if bpm <= 0 {
		return domain.Evaluation{}, fmt.Errorf("%w: bpm must be positive, got %d", domain.ErrInvalidInput, bpm)
	}
	current, err := t.baselines.GetBaseline(ctx, userID)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("get baseline: %w", err)
	}
	detection := t.settings.UserSettings(userID).Detection
	return detection.Score(current, userID, bpm, observedAt), nil
}

// Record scores sample and commits it together with the next baseline.
func (t *BaselineTracker) Record(ctx context.Context, sample domain.Sample) (domain.Evaluation, bool, error) {
	if err := sample.Validate(); err != nil {
		return domain.Evaluation{}, false, err
	}

	eval, err := t.Evaluate(ctx, sample.UserID, sample.BPM, sample.ObservedAt)
	if err != nil {
		return domain.Evaluation{}, false, err
	}

	if !eval.Seeded {
		sample.BaselineBPM = eval.BaselineBPM
	}
	sample.Anomalous = eval.Anomalous

	inserted, err := t.samples.AppendEvaluated(ctx, sample, eval.Next)
	if err != nil {
		return domain.Evaluation{}, false, fmt.Errorf("append sample: %w", err)
	}
	return eval, inserted, nil
}
