// Package tui provides the live terminal monitor for hrwatch.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/hrwatch/internal/core/ports/driving"
)

// Ports aggregates the driving ports the monitor reads from.
type Ports struct {
	// Scheduler supplies live per-user state and on-demand actions.
	Scheduler driving.Scheduler

	// Samples supplies readings, baselines and poll history.
	Samples driving.SampleService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Scheduler == nil {
		return ErrMissingScheduler
	}
	if p.Samples == nil {
		return ErrMissingSampleService
	}
	return nil
}
