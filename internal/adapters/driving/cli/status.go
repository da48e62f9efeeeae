package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/components/timefmt"
	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every user's scheduling state",
	Long: `Lists authorised users with their poll phase, last fetch, next due time
and consecutive failures. The state is read from the local store, so it
reflects a running 'hrwatch serve' as of its last completed cycle.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

const statusHeader = "%-32s %-10s %-10s %-10s %5s  %s"

func runStatus(cmd *cobra.Command, _ []string) error {
	app, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	snaps, err := app.Scheduler.Snapshot(cmd.Context())
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		cmd.Println("No authorised users. Run 'hrwatch auth login' to add one.")
		return nil
	}

	s := styles.DefaultStyles()
	now := time.Now()
	cmd.Println(s.Header.Render(fmt.Sprintf(statusHeader, "USER", "PHASE", "FETCHED", "NEXT", "FAILS", "LAST ERROR")))
	for i := range snaps {
		snap := &snaps[i]
		phase := s.Phase(snap.Phase).Render(fmt.Sprintf("%-10s", phaseLabel(snap)))
		cmd.Printf("%-32s %s %-10s %-10s %5d  %s\n",
			snap.UserID,
			phase,
			timefmt.Relative(now, snap.State.LastFetchAt),
			nextDue(now, snap),
			snap.State.ConsecutiveFailures,
			snap.State.LastError)
	}
	return nil
}

func phaseLabel(snap *domain.UserSnapshot) string {
	if snap.Phase == domain.PhaseSuspended && snap.State.Suspension == domain.SuspensionNeedsReauth {
		return "reauth"
	}
	return string(snap.Phase)
}

func nextDue(now time.Time, snap *domain.UserSnapshot) string {
	switch snap.Phase {
	case domain.PhaseSuspended:
		return "-"
	case domain.PhaseDue:
		return "now"
	}
	return timefmt.Relative(now, snap.NextDue)
}
