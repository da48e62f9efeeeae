// Package users provides the live user table for the monitor.
package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/components/timefmt"
	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driving"
)

// View is the table of active users.
type View struct {
	ctx       context.Context
	styles    *styles.Styles
	scheduler driving.Scheduler
	samples   driving.SampleService
	now       func() time.Time

	users    []domain.UserSnapshot
	latest   map[string]*domain.Sample
	selected int
	width    int
	height   int
	err      error
	loading  bool
}

// NewView creates a new users view.
func NewView(s *styles.Styles, scheduler driving.Scheduler, samples driving.SampleService) *View {
	return &View{
		ctx:       context.Background(),
		styles:    s,
		scheduler: scheduler,
		samples:   samples,
		now:       time.Now,
		latest:    make(map[string]*domain.Sample),
		loading:   true,
	}
}

// SetContext sets the context used by the view's commands.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init loads the first snapshot.
func (v *View) Init() tea.Cmd {
	return v.Load()
}

// Load returns a command that reads the scheduler snapshot and every
// user's latest sample.
func (v *View) Load() tea.Cmd {
	ctx, scheduler, samples, now := v.ctx, v.scheduler, v.samples, v.now
	return func() tea.Msg {
		users, err := scheduler.Snapshot(ctx)
		if err != nil {
			return messages.SnapshotLoaded{Err: err, At: now()}
		}
		latest := make(map[string]*domain.Sample, len(users))
		for _, u := range users {
			s, err := samples.Latest(ctx, u.UserID)
			if err != nil {
				return messages.SnapshotLoaded{Err: err, At: now()}
			}
			latest[u.UserID] = s
		}
		return messages.SnapshotLoaded{Users: users, Latest: latest, At: now()}
	}
}

// Update handles messages for the users view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SnapshotLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.users = msg.Users
		v.latest = msg.Latest
		if v.selected >= len(v.users) {
			v.selected = max(0, len(v.users)-1)
		}
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.users)-1 {
			v.selected++
		}
	case "enter":
		if id := v.SelectedUser(); id != "" {
			return v, func() tea.Msg { return messages.UserSelected{UserID: id} }
		}
	case "p":
		if id := v.SelectedUser(); id != "" {
			return v, PollNow(v.ctx, v.scheduler, id)
		}
	case "u":
		if id := v.SelectedUser(); id != "" {
			return v, Resume(v.ctx, v.scheduler, id)
		}
	case "r":
		v.loading = true
		return v, v.Load()
	}
	return v, nil
}

// PollNow returns a command that runs one cycle for userID.
func PollNow(ctx context.Context, scheduler driving.Scheduler, userID string) tea.Cmd {
	return func() tea.Msg {
		rec, err := scheduler.PollNow(ctx, userID)
		return messages.PollCompleted{UserID: userID, Record: rec, Err: err}
	}
}

// Resume returns a command that clears userID's suspension.
func Resume(ctx context.Context, scheduler driving.Scheduler, userID string) tea.Cmd {
	return func() tea.Msg {
		return messages.Resumed{UserID: userID, Err: scheduler.Resume(ctx, userID)}
	}
}

// View renders the users table.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("♥ hrwatch"))
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		return b.String()
	case v.loading && len(v.users) == 0:
		b.WriteString(v.styles.Muted.Render("Loading users..."))
		return b.String()
	case len(v.users) == 0:
		b.WriteString(v.styles.Muted.Render("No authorised users. Run `hrwatch auth login` to add one."))
		return b.String()
	}

	b.WriteString(v.styles.Header.Render(fmt.Sprintf("  %-24s %-10s %5s %-10s %-9s %-9s %5s  %s",
		"USER", "PHASE", "BPM", "BASELINE", "FETCHED", "NEXT", "FAILS", "LAST ERROR")))
	b.WriteString("\n")

	now := v.now()
	for i := range v.users {
		b.WriteString(v.renderRow(i, &v.users[i], now))
		b.WriteString("\n")
	}
	return b.String()
}

func (v *View) renderRow(index int, u *domain.UserSnapshot, now time.Time) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	bpm, baseline := "-", "-"
	if s := v.latest[u.UserID]; s != nil {
		bpm = fmt.Sprintf("%d", s.BPM)
		if s.BaselineBPM > 0 {
			baseline = fmt.Sprintf("%.1f", s.BaselineBPM)
		}
	}

	next := timefmt.Relative(now, u.NextDue)
	if u.State.Suspended() {
		next = string(u.State.Suspension)
	}

	lastErr := u.State.LastError
	if maxErr := v.width - 84; maxErr > 10 && len(lastErr) > maxErr {
		lastErr = lastErr[:maxErr-3] + "..."
	}

	userID := u.UserID
	if len(userID) > 24 {
		userID = userID[:21] + "..."
	}

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-24s %-10s %5s %-10s %-9s %-9s %5d  %s",
			indicator, userID, u.Phase, bpm, baseline,
			timefmt.Relative(now, u.State.LastFetchAt), next, u.State.ConsecutiveFailures, lastErr))
	}

	bpmStyle := v.styles.Normal
	if s := v.latest[u.UserID]; s != nil && s.Anomalous {
		bpmStyle = v.styles.Anomaly
	}
	return v.styles.Normal.Render(fmt.Sprintf("%s%-24s ", indicator, userID)) +
		v.styles.Phase(u.Phase).Render(fmt.Sprintf("%-10s", u.Phase)) + " " +
		bpmStyle.Render(fmt.Sprintf("%5s", bpm)) + " " +
		v.styles.Muted.Render(fmt.Sprintf("%-10s", baseline)) + " " +
		v.styles.Normal.Render(fmt.Sprintf("%-9s %-9s %5d  ",
			timefmt.Relative(now, u.State.LastFetchAt), next, u.State.ConsecutiveFailures)) +
		v.styles.Error.Render(lastErr)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Users returns the current snapshot.
func (v *View) Users() []domain.UserSnapshot {
	return v.users
}

// SelectedUser returns the selected user ID, or "" when the table is empty.
func (v *View) SelectedUser() string {
	if v.selected < 0 || v.selected >= len(v.users) {
		return ""
	}
	return v.users[v.selected].UserID
}

// SelectedIndex returns the selected row.
func (v *View) SelectedIndex() int {
	return v.selected
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
