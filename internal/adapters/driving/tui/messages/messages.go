// Package messages defines Bubbletea message types for the monitor.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewUsers is the live table of every active user.
	ViewUsers ViewType = iota
	// ViewDetail shows one user's latest readings and poll history.
	ViewDetail
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewUsers:
		return "users"
	case ViewDetail:
		return "detail"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// Tick fires on each refresh interval.
type Tick struct {
	At time.Time
}

// SnapshotLoaded carries the scheduler's view of every active user
// together with each user's latest sample.
type SnapshotLoaded struct {
	Users  []domain.UserSnapshot
	Latest map[string]*domain.Sample
	At     time.Time
	Err    error
}

// UserSelected opens the detail view for a user.
type UserSelected struct {
	UserID string
}

// DetailLoaded carries the data shown in the detail view.
type DetailLoaded struct {
	UserID   string
	Baseline *domain.Baseline
	Samples  []domain.Sample
	History  []domain.PollRecord
	Err      error
}

// PollCompleted reports the outcome of an on-demand cycle.
type PollCompleted struct {
	UserID string
	Record *domain.PollRecord
	Err    error
}

// Resumed reports the outcome of clearing a suspension.
type Resumed struct {
	UserID string
	Err    error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
