package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// Ensure LogNotifier implements the Notifier interface.
var _ driven.Notifier = (*LogNotifier)(nil)

// LogNotifier writes each anomaly as a warning.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a notifier writing to log.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

// Notify logs the event. It never fails.
func (n *LogNotifier) Notify(_ context.Context, e domain.AnomalyEvent) error {
	n.log.Warn("heart rate anomaly",
		zap.String("event_id", e.ID),
		zap.String("user_id", e.UserID),
		zap.Int("bpm", e.BPM),
		zap.Float64("baseline_bpm", e.BaselineBPM),
		zap.Float64("deviation", e.Deviation),
		zap.Time("observed_at", e.ObservedAt),
	)
	return nil
}
