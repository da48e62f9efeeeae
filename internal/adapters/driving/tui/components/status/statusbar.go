// Package status provides the status bar component for the monitor.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/styles"
)

// State represents what the monitor is doing.
type State string

const (
	StateReady      State = "ready"
	StateRefreshing State = "refreshing"
	StatePolling    State = "polling"
	StateError      State = "error"
)

// Bar displays monitor status and keybinding hints.
type Bar struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	hints     []key.Binding
	state     State
	message   string
	users     int
	suspended int
	updatedAt time.Time
	width     int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		hints:  km.ShortHelp(),
		state:  StateReady,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	inner := s.width - s.styles.StatusBar.GetHorizontalFrameSize()
	padding := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateRefreshing:
		return s.styles.Muted.Render("Refreshing...")
	case StatePolling:
		return s.styles.Warning.Render(s.message)
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	case StateReady:
	}

	summary := fmt.Sprintf("%d users", s.users)
	if s.users == 1 {
		summary = "1 user"
	}
	if s.suspended > 0 {
		summary += fmt.Sprintf(", %d suspended", s.suspended)
	}
	if !s.updatedAt.IsZero() {
		summary += " · updated " + s.updatedAt.Local().Format("15:04:05")
	}
	if s.message != "" {
		summary += " · " + s.message
	}
	return s.styles.Normal.Render(summary)
}

func (s *Bar) renderRight() string {
	hints := make([]string, 0, len(s.hints))
	for _, b := range s.hints {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetCounts records how many users are shown and how many are suspended.
func (s *Bar) SetCounts(users, suspended int) {
	s.users = users
	s.suspended = suspended
}

// SetUpdated records when the data was last refreshed.
func (s *Bar) SetUpdated(at time.Time) {
	s.updatedAt = at
}

// SetHints replaces the keybinding hints.
func (s *Bar) SetHints(bindings []key.Binding) {
	s.hints = bindings
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
