package notify

import (
	"context"
	"errors"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// Ensure Multi implements the Notifier interface.
var _ driven.Notifier = Multi(nil)

// Multi delivers every event to each notifier in order. One failing sink
// does not stop delivery to the others.
type Multi []driven.Notifier

// Notify delivers e to all sinks and joins their errors.
func (m Multi) Notify(ctx context.Context, e domain.AnomalyEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
