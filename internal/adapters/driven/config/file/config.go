package file

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// Environment overrides.
const (
	EnvClientID     = "HRWATCH_CLIENT_ID"
	EnvClientSecret = "HRWATCH_CLIENT_SECRET"
	EnvAPIBase      = "HRWATCH_API_BASE"
)

// Duration is a time.Duration written as a Go duration string ("5m").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the on-disk configuration.
type Config struct {
	DataDir    string                 `toml:"data_dir,omitempty"`
	Polling    PollingSection         `toml:"polling"`
	Detection  DetectionSection       `toml:"detection"`
	Users      map[string]UserSection `toml:"users,omitempty"`
	OAuth      OAuthSection           `toml:"oauth"`
	API        APISection             `toml:"api"`
	Notify     NotifySection          `toml:"notify"`
	QuietHours QuietHoursSection      `toml:"quiet_hours"`
}

// PollingSection is [polling].
type PollingSection struct {
	Interval        Duration `toml:"interval"`
	MaxBackoff      Duration `toml:"max_backoff"`
	Tick            Duration `toml:"tick"`
	Workers         int      `toml:"workers"`
	FetchTimeout    Duration `toml:"fetch_timeout"`
	RefreshTimeout  Duration `toml:"refresh_timeout"`
	NotifyTimeout   Duration `toml:"notify_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	SkewMargin      Duration `toml:"skew_margin"`
	RateBudget      float64  `toml:"rate_budget"`
	InitialLookback Duration `toml:"initial_lookback"`
	Retention       Duration `toml:"retention"`
}

// DetectionSection is [detection].
type DetectionSection struct {
	SpikeThreshold float64 `toml:"spike_threshold"`
	Alpha          float64 `toml:"alpha"`
}

// UserSection is [users."<id>"]. Unset fields inherit the global values.
type UserSection struct {
	Interval       *Duration `toml:"interval,omitempty"`
	SpikeThreshold *float64  `toml:"spike_threshold,omitempty"`
	Alpha          *float64  `toml:"alpha,omitempty"`
}

// OAuthSection is [oauth].
type OAuthSection struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	AuthURL      string   `toml:"auth_url,omitempty"`
	TokenURL     string   `toml:"token_url,omitempty"`
	RedirectPort int      `toml:"redirect_port"`
	Scopes       []string `toml:"scopes"`
}

// APISection is [api].
type APISection struct {
	BaseURL string `toml:"base_url"`
}

// NotifySection is [notify].
type NotifySection struct {
	Log          bool   `toml:"log"`
	WebhookURL   string `toml:"webhook_url,omitempty"`
	WebhookToken string `toml:"webhook_token,omitempty"`
	RedisURL     string `toml:"redis_url,omitempty"`
	RedisChannel string `toml:"redis_channel,omitempty"`
}

// QuietHoursSection is [quiet_hours].
type QuietHoursSection struct {
	Timezone string   `toml:"timezone,omitempty"`
	Windows  []string `toml:"windows,omitempty"`
	Mode     string   `toml:"mode,omitempty"`
	Users    []string `toml:"users,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	p := domain.DefaultPollingConfig()
	u := domain.DefaultUserSettings()
	return Config{
		Polling: PollingSection{
			Interval:        Duration(u.PollInterval),
			MaxBackoff:      Duration(p.MaxBackoff),
			Tick:            Duration(p.Tick),
			Workers:         p.Workers,
			FetchTimeout:    Duration(p.FetchTimeout),
			RefreshTimeout:  Duration(p.RefreshTimeout),
			NotifyTimeout:   Duration(p.NotifyTimeout),
			ShutdownTimeout: Duration(p.ShutdownTimeout),
			SkewMargin:      Duration(p.SkewMargin),
			RateBudget:      p.RateBudget,
			InitialLookback: Duration(p.InitialLookback),
			Retention:       Duration(p.Retention),
		},
		Detection: DetectionSection{
			SpikeThreshold: u.Detection.SpikeThreshold,
			Alpha:          u.Detection.Alpha,
		},
		OAuth: OAuthSection{
			RedirectPort: 8085,
			Scopes:       []string{"email", "personal", "heartrate"},
		},
		Notify: NotifySection{Log: true},
	}
}

// applyEnv overlays the environment overrides.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvClientID); ok {
		c.OAuth.ClientID = v
	}
	if v, ok := os.LookupEnv(EnvClientSecret); ok {
		c.OAuth.ClientSecret = v
	}
	if v, ok := os.LookupEnv(EnvAPIBase); ok {
		c.API.BaseURL = v
	}
}

// PollingConfig converts [polling] into the engine's settings.
func (c *Config) PollingConfig() domain.PollingConfig {
	p := c.Polling
	return domain.PollingConfig{
		MaxBackoff:      time.Duration(p.MaxBackoff),
		Tick:            time.Duration(p.Tick),
		Workers:         p.Workers,
		FetchTimeout:    time.Duration(p.FetchTimeout),
		RefreshTimeout:  time.Duration(p.RefreshTimeout),
		NotifyTimeout:   time.Duration(p.NotifyTimeout),
		ShutdownTimeout: time.Duration(p.ShutdownTimeout),
		SkewMargin:      time.Duration(p.SkewMargin),
		RateBudget:      p.RateBudget,
		InitialLookback: time.Duration(p.InitialLookback),
		Retention:       time.Duration(p.Retention),
	}
}

// UserSettings resolves a user's settings: the global values with any
// [users."<id>"] overrides applied.
func (c *Config) UserSettings(userID string) domain.UserSettings {
	s := domain.UserSettings{
		PollInterval: time.Duration(c.Polling.Interval),
		Detection: domain.Detection{
			SpikeThreshold: c.Detection.SpikeThreshold,
			Alpha:          c.Detection.Alpha,
		},
	}
	o, ok := c.Users[userID]
	if !ok {
		return s
	}
	if o.Interval != nil {
		s.PollInterval = time.Duration(*o.Interval)
	}
	if o.SpikeThreshold != nil {
		s.Detection.SpikeThreshold = *o.SpikeThreshold
	}
	if o.Alpha != nil {
		s.Detection.Alpha = *o.Alpha
	}
	return s
}

// QuietHoursConfig converts [quiet_hours]. Zero windows disable the policy.
func (c *Config) QuietHoursConfig() domain.QuietHours {
	q := c.QuietHours
	return domain.QuietHours{
		Timezone: q.Timezone,
		Windows:  q.Windows,
		Mode:     domain.QuietHoursMode(q.Mode),
		Users:    q.Users,
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	p := c.PollingConfig()
	if err := p.Validate(); err != nil {
		return fmt.Errorf("[polling]: %w", err)
	}
	global := c.UserSettings("")
	if err := global.Validate(); err != nil {
		return fmt.Errorf("[polling]/[detection]: %w", err)
	}
	for id := range c.Users {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("[users]: %w: empty user id", domain.ErrInvalidInput)
		}
		s := c.UserSettings(id)
		if err := s.Validate(); err != nil {
			return fmt.Errorf("[users.%q]: %w", id, err)
		}
	}
	if c.OAuth.RedirectPort < 0 || c.OAuth.RedirectPort > 65535 {
		return fmt.Errorf("[oauth]: %w: redirect_port %d out of range", domain.ErrInvalidInput, c.OAuth.RedirectPort)
	}
	switch domain.QuietHoursMode(c.QuietHours.Mode) {
	case "", domain.QuietSuppressPoll, domain.QuietSuppressNotify:
	default:
		return fmt.Errorf("[quiet_hours]: %w: unknown mode %q", domain.ErrInvalidInput, c.QuietHours.Mode)
	}
	return nil
}
