package cli

import (
	"sync/atomic"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
	"github.com/custodia-labs/hrwatch/internal/core/services"
)

var _ driven.PollPolicy = (*reloadablePolicy)(nil)

// reloadablePolicy lets a config reload replace the quiet-hours policy
// while the scheduler keeps a single PollPolicy.
type reloadablePolicy struct {
	current atomic.Pointer[services.QuietHoursPolicy]
}

func newReloadablePolicy(cfg domain.QuietHours) (*reloadablePolicy, error) {
	p := &reloadablePolicy{}
	if err := p.Update(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Update swaps in a policy built from cfg. On error the old policy stays.
func (p *reloadablePolicy) Update(cfg domain.QuietHours) error {
	next, err := services.NewQuietHoursPolicy(cfg)
	if err != nil {
		return err
	}
	p.current.Store(next)
	return nil
}

// Decide implements driven.PollPolicy.
func (p *reloadablePolicy) Decide(userID string, now time.Time) domain.PolicyDecision {
	current := p.current.Load()
	if current == nil {
		return domain.Allow
	}
	return current.Decide(userID, now)
}
