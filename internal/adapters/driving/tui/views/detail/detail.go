// Package detail provides the per-user detail view for the monitor.
package detail

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

const (
	// Window is how far back the sample chart reaches.
	Window = time.Hour
	// historyRows is how many poll cycles are listed.
	historyRows = 10
	// sampleRows is how many recent readings are listed.
	sampleRows = 8
)

var sparks = []rune("▁▂▃▄▅▆▇█")

// View shows one user's baseline, recent readings and poll history.
type View struct {
	ctx     context.Context
	styles  *styles.Styles
	samples driving.SampleService
	now     func() time.Time

	userID   string
	baseline *domain.Baseline
	recent   []domain.Sample
	history  []domain.PollRecord
	width    int
	height   int
	err      error
	loading  bool
}

// NewView creates a new detail view.
func NewView(s *styles.Styles, samples driving.SampleService) *View {
	return &View{
		ctx:     context.Background(),
		styles:  s,
		samples: samples,
		now:     time.Now,
	}
}

// SetContext sets the context used by the view's commands.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// SetUser switches the view to userID and returns the load command.
func (v *View) SetUser(userID string) tea.Cmd {
	if userID != v.userID {
		v.baseline = nil
		v.recent = nil
		v.history = nil
	}
	v.userID = userID
	v.err = nil
	v.loading = true
	return v.Load()
}

// UserID returns the user being shown.
func (v *View) UserID() string {
	return v.userID
}

// Load returns a command that reads the user's data.
func (v *View) Load() tea.Cmd {
	ctx, samples, userID := v.ctx, v.samples, v.userID
	now := v.now()
	return func() tea.Msg {
		msg := messages.DetailLoaded{UserID: userID}
		if msg.Baseline, msg.Err = samples.Baseline(ctx, userID); msg.Err != nil {
			return msg
		}
		if msg.Samples, msg.Err = samples.List(ctx, userID, now.Add(-Window), now.Add(time.Second), 0); msg.Err != nil {
			return msg
		}
		msg.History, msg.Err = samples.History(ctx, userID, historyRows)
		return msg
	}
}

// Update handles messages for the detail view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.DetailLoaded:
		if msg.UserID != v.userID {
			return v, nil
		}
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.baseline = msg.Baseline
		v.recent = msg.Samples
		v.history = msg.History
	case tea.KeyMsg:
		if msg.String() == "r" {
			v.loading = true
			return v, v.Load()
		}
	}
	return v, nil
}

// View renders the detail view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("♥ " + v.userID))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		return b.String()
	}
	if v.loading && v.baseline == nil && len(v.recent) == 0 {
		b.WriteString(v.styles.Muted.Render("Loading..."))
		return b.String()
	}

	now := v.now()
	b.WriteString(v.renderBaseline(now))
	b.WriteString("\n\n")
	b.WriteString(v.renderSamples(now))
	b.WriteString("\n")
	b.WriteString(v.renderHistory(now))
	return b.String()
}

func (v *View) renderBaseline(now time.Time) string {
	if v.baseline == nil {
		return v.styles.Muted.Render("Baseline not seeded yet.")
	}
	return v.styles.Header.Render("Baseline ") +
		v.styles.Normal.Render(fmt.Sprintf("%.1f bpm", v.baseline.BPM)) +
		v.styles.Muted.Render(fmt.Sprintf("  (%d samples, updated %s)",
			v.baseline.Samples, timefmt.Relative(now, v.baseline.UpdatedAt)))
}

func (v *View) renderSamples(now time.Time) string {
	var b strings.Builder
	b.WriteString(v.styles.Header.Render("Last hour"))
	b.WriteString("\n")
	if len(v.recent) == 0 {
		b.WriteString(v.styles.Muted.Render("No readings."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(v.styles.Normal.Render(Sparkline(v.recent, v.chartWidth())))
	b.WriteString("\n")

	start := max(0, len(v.recent)-sampleRows)
	for i := len(v.recent) - 1; i >= start; i-- {
		s := v.recent[i]
		line := fmt.Sprintf("  %-9s %4d bpm", timefmt.Clock(now, s.ObservedAt), s.BPM)
		if s.BaselineBPM > 0 {
			line += fmt.Sprintf("  baseline %.1f", s.BaselineBPM)
		}
		if s.Anomalous {
			b.WriteString(v.styles.Anomaly.Render(line + "  ▲ anomaly"))
		} else {
			b.WriteString(v.styles.Normal.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (v *View) renderHistory(now time.Time) string {
	var b strings.Builder
	b.WriteString(v.styles.Header.Render("Poll history"))
	b.WriteString("\n")
	if len(v.history) == 0 {
		b.WriteString(v.styles.Muted.Render("No completed cycles."))
		b.WriteString("\n")
		return b.String()
	}
	for _, rec := range v.history {
		status := v.styles.Success.Render(fmt.Sprintf("%-9s", rec.Status))
		if rec.Status == domain.StatusFailed {
			status = v.styles.Error.Render(fmt.Sprintf("%-9s", rec.Status))
		}
		line := fmt.Sprintf("  %-9s ", timefmt.Relative(now, rec.StartedAt))
		detail := fmt.Sprintf(" %3d stored %2d anomalies %6s",
			rec.SamplesStored, rec.Anomalies, rec.EndedAt.Sub(rec.StartedAt).Round(time.Millisecond))
		b.WriteString(v.styles.Normal.Render(line) + status + v.styles.Muted.Render(detail))
		if rec.Error != "" {
			b.WriteString("  " + v.styles.Error.Render(rec.Error))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (v *View) chartWidth() int {
	if v.width <= 4 {
		return 60
	}
	return v.width - 4
}

// Sparkline renders up to width of the most recent samples as block
// characters scaled between their minimum and maximum.
func Sparkline(samples []domain.Sample, width int) string {
	if len(samples) == 0 || width <= 0 {
		return ""
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}

	lo, hi := samples[0].BPM, samples[0].BPM
	for _, s := range samples {
		lo = min(lo, s.BPM)
		hi = max(hi, s.BPM)
	}

	out := make([]rune, len(samples))
	for i, s := range samples {
		idx := 0
		if hi > lo {
			idx = (s.BPM - lo) * (len(sparks) - 1) / (hi - lo)
		}
		out[i] = sparks[idx]
	}
	return string(out)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
