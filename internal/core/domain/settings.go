package domain

import (
	"fmt"
	"time"
)

// Default polling and detection parameters.
const (
	DefaultPollInterval    = 5 * time.Minute
	DefaultMaxBackoff      = 1 * time.Hour
	DefaultTick            = 5 * time.Second
	DefaultWorkers         = 4
	DefaultRequestTimeout  = 10 * time.Second
	DefaultNotifyTimeout   = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultSkewMargin      = 5 * time.Minute
	DefaultInitialLookback = 5 * time.Minute
	DefaultRetention       = 14 * 24 * time.Hour
	DefaultSpikeThreshold  = 0.20
	DefaultAlpha           = 0.10
)

// PollingConfig holds the engine-wide scheduling configuration.
type PollingConfig struct {
	// MaxBackoff caps the retry delay after transient failures.
	MaxBackoff time.Duration
	// Tick is how often the dispatcher looks for due users.
	Tick time.Duration
	// Workers bounds how many poll cycles run concurrently.
	Workers int
	// FetchTimeout bounds each call to the remote sample API.
	FetchTimeout time.Duration
	// RefreshTimeout bounds each OAuth refresh grant.
	RefreshTimeout time.Duration
	// NotifyTimeout bounds each anomaly notification.
	NotifyTimeout time.Duration
	// ShutdownTimeout is how long in-flight cycles may run after Stop.
	ShutdownTimeout time.Duration
	// SkewMargin is subtracted from token expiry before use.
	SkewMargin time.Duration
	// RateBudget is the remote API budget in requests per minute for
	// all users together. Zero disables the interval floor.
	RateBudget float64
	// InitialLookback is how far back the first fetch for a user reaches.
	InitialLookback time.Duration
	// Retention is how long samples are kept. Zero keeps them forever.
	Retention time.Duration
}

// UserSettings holds per-user configuration.
type UserSettings struct {
	PollInterval time.Duration
	Detection    Detection
}

// DefaultPollingConfig returns sensible defaults for the engine.
func DefaultPollingConfig() PollingConfig {
	return PollingConfig{
		MaxBackoff:      DefaultMaxBackoff,
		Tick:            DefaultTick,
		Workers:         DefaultWorkers,
		FetchTimeout:    DefaultRequestTimeout,
		RefreshTimeout:  DefaultRequestTimeout,
		NotifyTimeout:   DefaultNotifyTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		SkewMargin:      DefaultSkewMargin,
		InitialLookback: DefaultInitialLookback,
		Retention:       DefaultRetention,
	}
}

// DefaultUserSettings returns the settings used when a user has no overrides.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		PollInterval: DefaultPollInterval,
		Detection: Detection{
			SpikeThreshold: DefaultSpikeThreshold,
			Alpha:          DefaultAlpha,
		},
	}
}

// Validate checks the engine configuration.
func (c *PollingConfig) Validate() error {
	switch {
	case c.MaxBackoff <= 0:
		return fmt.Errorf("%w: max_backoff must be positive", ErrInvalidInput)
	case c.Tick <= 0:
		return fmt.Errorf("%w: tick must be positive", ErrInvalidInput)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidInput)
	case c.FetchTimeout <= 0 || c.RefreshTimeout <= 0 || c.NotifyTimeout <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidInput)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidInput)
	case c.InitialLookback <= 0:
		return fmt.Errorf("%w: initial_lookback must be positive", ErrInvalidInput)
	case c.SkewMargin < 0:
		return fmt.Errorf("%w: skew_margin must not be negative", ErrInvalidInput)
	case c.RateBudget < 0:
		return fmt.Errorf("%w: rate_budget must not be negative", ErrInvalidInput)
	}
	return nil
}

// Validate checks per-user settings.
func (s *UserSettings) Validate() error {
	if s.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidInput)
	}
	return s.Detection.Validate()
}

// Validate checks detection parameters.
func (d *Detection) Validate() error {
	if d.SpikeThreshold <= 0 {
		return fmt.Errorf("%w: spike_threshold must be positive", ErrInvalidInput)
	}
	if d.Alpha <= 0 || d.Alpha > 1 {
		return fmt.Errorf("%w: alpha must be in (0, 1]", ErrInvalidInput)
	}
	return nil
}
