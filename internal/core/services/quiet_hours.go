package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// Ensure QuietHoursPolicy implements the interface.
var _ driven.PollPolicy = (*QuietHoursPolicy)(nil)

type window struct {
	start, end time.Duration // offsets from local midnight
}

func (w window) contains(d time.Duration) bool {
	if w.start <= w.end {
		return d >= w.start && d < w.end
	}
	return d >= w.start || d < w.end
}

// QuietHoursPolicy suppresses polling or notifications during configured
// local time windows.
type QuietHoursPolicy struct {
	loc     *time.Location
	windows []window
	mode    domain.QuietHoursMode
	users   map[string]bool
}

// NewQuietHoursPolicy parses cfg into a policy.
func NewQuietHoursPolicy(cfg domain.QuietHours) (*QuietHoursPolicy, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %w", domain.ErrInvalidInput, cfg.Timezone, err)
		}
		loc = l
	}

	switch cfg.Mode {
	case domain.QuietSuppressPoll, domain.QuietSuppressNotify:
	case "":
		cfg.Mode = domain.QuietSuppressNotify
	default:
		return nil, fmt.Errorf("%w: unknown quiet hours mode %q", domain.ErrInvalidInput, cfg.Mode)
	}

	p := &QuietHoursPolicy{loc: loc, mode: cfg.Mode}
	for _, spec := range cfg.Windows {
		w, err := parseWindow(spec)
		if err != nil {
			return nil, err
		}
		p.windows = append(p.windows, w)
	}
	if len(cfg.Users) > 0 {
		p.users = make(map[string]bool, len(cfg.Users))
		for _, u := range cfg.Users {
			p.users[u] = true
		}
	}
	return p, nil
}

func parseWindow(spec string) (window, error) {
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return window{}, fmt.Errorf("%w: quiet window %q must be HH:MM-HH:MM", domain.ErrInvalidInput, spec)
	}
	start, err := parseClock(startStr)
	if err != nil {
		return window{}, err
	}
	end, err := parseClock(endStr)
	if err != nil {
		return window{}, err
	}
	if start == end {
		return window{}, fmt.Errorf("%w: quiet window %q is empty", domain.ErrInvalidInput, spec)
	}
	return window{start: start, end: end}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: time of day %q: %w", domain.ErrInvalidInput, s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Active reports whether now falls in a quiet window for userID.
func (p *QuietHoursPolicy) Active(userID string, now time.Time) bool {
	if p.users != nil && !p.users[userID] {
		return false
	}
	local := now.In(p.loc)
	offset := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	for _, w := range p.windows {
		if w.contains(offset) {
			return true
		}
	}
	return false
}

// Decide implements driven.PollPolicy.
func (p *QuietHoursPolicy) Decide(userID string, now time.Time) domain.PolicyDecision {
	if !p.Active(userID, now) {
		return domain.Allow
	}
	if p.mode == domain.QuietSuppressPoll {
		return domain.PolicyDecision{SkipPoll: true, Reason: "quiet hours"}
	}
	return domain.PolicyDecision{SuppressNotify: true, Reason: "quiet hours"}
}
