package status

import (
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Equal(t, 80, bar.Width())
}

func TestNewBar_NilDependencies(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestBar_ViewShowsCounts(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetCounts(3, 1)

	view := bar.View()

	assert.Contains(t, view, "3 users")
	assert.Contains(t, view, "1 suspended")
}

func TestBar_ViewSingularUser(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetCounts(1, 0)

	view := bar.View()

	assert.Contains(t, view, "1 user")
	assert.NotContains(t, view, "suspended")
}

func TestBar_ViewShowsUpdatedTime(t *testing.T) {
	bar := NewBar(nil, nil)
	at := time.Date(2026, 3, 2, 10, 11, 12, 0, time.Local)
	bar.SetUpdated(at)

	assert.Contains(t, bar.View(), "10:11:12")
}

func TestBar_ErrorState(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")

	assert.Contains(t, bar.View(), "Error: boom")
}

func TestBar_PollingState(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StatePolling)
	bar.SetMessage("Polling alice...")

	assert.Contains(t, bar.View(), "Polling alice...")
}

func TestBar_Hints(t *testing.T) {
	km := keymap.DefaultKeyMap()
	bar := NewBar(nil, km)
	bar.SetWidth(200)
	bar.SetHints(km.UsersHelp())

	view := bar.View()

	assert.Contains(t, view, "p: poll now")
	assert.Contains(t, view, "u: resume")
}

func TestBar_RespectsWidth(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)

	assert.Equal(t, 120, lipgloss.Width(bar.View()))
}
