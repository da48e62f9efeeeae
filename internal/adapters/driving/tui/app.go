package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/views/detail"
	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/views/users"
)

// DefaultRefresh is how often the monitor reloads the snapshot.
const DefaultRefresh = 2 * time.Second

// App is the monitor application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	usersView  *users.View
	detailView *detail.View
	statusBar  *status.Bar

	currentView messages.ViewType
	// helpReturn is the view restored when help is closed.
	helpReturn messages.ViewType
	refresh    time.Duration

	err    error
	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a monitor with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	bar := status.NewBar(s, km)
	bar.SetHints(km.UsersHelp())

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		usersView:   users.NewView(s, ports.Scheduler, ports.Samples),
		detailView:  detail.NewView(s, ports.Samples),
		statusBar:   bar,
		currentView: messages.ViewUsers,
		refresh:     DefaultRefresh,
	}, nil
}

// WithContext sets the context used for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.usersView.SetContext(ctx)
	a.detailView.SetContext(ctx)
	return a
}

// WithRefresh sets the snapshot reload interval.
func (a *App) WithRefresh(d time.Duration) *App {
	if d > 0 {
		a.refresh = d
	}
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("hrwatch"),
		a.usersView.Init(),
		a.tick(),
	)
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.refresh, func(t time.Time) tea.Msg {
		return messages.Tick{At: t}
	})
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.usersView.SetDimensions(msg.Width, msg.Height)
		a.detailView.SetDimensions(msg.Width, msg.Height)
		a.statusBar.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.Tick:
		cmds := []tea.Cmd{a.usersView.Load(), a.tick()}
		if a.currentView == messages.ViewDetail {
			cmds = append(cmds, a.detailView.Load())
		}
		return a, tea.Batch(cmds...)

	case messages.SnapshotLoaded:
		a.usersView, cmd = a.usersView.Update(msg)
		a.statusBar.SetUpdated(msg.At)
		if msg.Err != nil {
			a.err = msg.Err
			a.statusBar.SetState(status.StateError)
			a.statusBar.SetMessage(msg.Err.Error())
			return a, cmd
		}
		suspended := 0
		for _, u := range msg.Users {
			if u.State.Suspended() {
				suspended++
			}
		}
		a.statusBar.SetCounts(len(msg.Users), suspended)
		if a.statusBar.State() != status.StatePolling {
			a.statusBar.SetState(status.StateReady)
		}
		return a, cmd

	case messages.UserSelected:
		return a, a.showDetail(msg.UserID)

	case messages.DetailLoaded:
		a.detailView, cmd = a.detailView.Update(msg)
		return a, cmd

	case messages.PollCompleted:
		if msg.Err != nil {
			a.setError(fmt.Errorf("poll %s: %w", msg.UserID, msg.Err))
		} else {
			a.statusBar.SetState(status.StateReady)
			a.statusBar.SetMessage(describePoll(msg))
		}
		return a, a.reload()

	case messages.Resumed:
		if msg.Err != nil {
			a.setError(fmt.Errorf("resume %s: %w", msg.UserID, msg.Err))
		} else {
			a.statusBar.SetState(status.StateReady)
			a.statusBar.SetMessage(fmt.Sprintf("%s resumed", msg.UserID))
		}
		return a, a.reload()

	case messages.ViewChanged:
		a.switchTo(msg.View)
		return a, nil

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if k == "ctrl+c" {
		return a, tea.Quit
	}

	if a.currentView == messages.ViewHelp {
		switch {
		case keymap.Matches(k, a.keymap.Quit):
			return a, tea.Quit
		case keymap.Matches(k, a.keymap.Back), keymap.Matches(k, a.keymap.Help):
			a.switchTo(a.helpReturn)
		}
		return a, nil
	}

	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return a, tea.Quit
	case keymap.Matches(k, a.keymap.Help):
		a.helpReturn = a.currentView
		a.currentView = messages.ViewHelp
		return a, nil
	}

	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewUsers:
		if id := a.usersView.SelectedUser(); id != "" {
			a.announce(k, id)
		}
		a.usersView, cmd = a.usersView.Update(msg)
		return a, cmd

	case messages.ViewDetail:
		id := a.detailView.UserID()
		switch {
		case keymap.Matches(k, a.keymap.Back):
			a.switchTo(messages.ViewUsers)
			return a, nil
		case keymap.Matches(k, a.keymap.PollNow):
			a.announce(k, id)
			return a, users.PollNow(a.ctx, a.ports.Scheduler, id)
		case keymap.Matches(k, a.keymap.Resume):
			return a, users.Resume(a.ctx, a.ports.Scheduler, id)
		}
		a.detailView, cmd = a.detailView.Update(msg)
		return a, cmd
	}
	return a, nil
}

// announce shows progress in the status bar for long-running actions.
func (a *App) announce(k, userID string) {
	if keymap.Matches(k, a.keymap.PollNow) {
		a.statusBar.SetState(status.StatePolling)
		a.statusBar.SetMessage(fmt.Sprintf("Polling %s...", userID))
	}
}

func (a *App) showDetail(userID string) tea.Cmd {
	a.switchTo(messages.ViewDetail)
	return a.detailView.SetUser(userID)
}

func (a *App) switchTo(view messages.ViewType) {
	a.currentView = view
	var hints []key.Binding
	switch view {
	case messages.ViewDetail:
		hints = a.keymap.DetailHelp()
	case messages.ViewHelp:
		hints = a.keymap.ShortHelp()
	default:
		hints = a.keymap.UsersHelp()
	}
	a.statusBar.SetHints(hints)
}

func (a *App) reload() tea.Cmd {
	if a.currentView == messages.ViewDetail {
		return tea.Batch(a.usersView.Load(), a.detailView.Load())
	}
	return a.usersView.Load()
}

func (a *App) setError(err error) {
	a.err = err
	a.statusBar.SetState(status.StateError)
	a.statusBar.SetMessage(err.Error())
}

func describePoll(msg messages.PollCompleted) string {
	if msg.Record == nil {
		return fmt.Sprintf("%s polled", msg.UserID)
	}
	return fmt.Sprintf("%s polled: %d stored, %d anomalies",
		msg.UserID, msg.Record.SamplesStored, msg.Record.Anomalies)
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewDetail:
		body = a.detailView.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	default:
		body = a.usersView.View()
	}

	// Pin the status bar to the bottom of the screen.
	gap := a.height - strings.Count(body, "\n") - 2
	if gap < 1 {
		gap = 1
	}
	return body + strings.Repeat("\n", gap) + a.statusBar.View()
}

func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-10s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Help.Render("[esc] close help"))
	return b.String()
}

// Run starts the monitor.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its first window size.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions (for testing).
func (a *App) SetDimensions(width, height int) {
	a.Update(tea.WindowSizeMsg{Width: width, Height: height})
}
