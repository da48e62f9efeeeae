package tui

import "errors"

// ErrMissingScheduler is returned when the scheduler is not provided.
var ErrMissingScheduler = errors.New("tui: scheduler is required")

// ErrMissingSampleService is returned when the sample service is not provided.
var ErrMissingSampleService = errors.New("tui: sample service is required")
