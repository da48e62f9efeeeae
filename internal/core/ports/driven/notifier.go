package driven

import (
	"context"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// Notifier delivers anomaly events. Delivery is fire-and-forget from the
// scheduler's point of view: errors are logged, never retried.
type Notifier interface {
	Notify(ctx context.Context, event domain.AnomalyEvent) error
}
