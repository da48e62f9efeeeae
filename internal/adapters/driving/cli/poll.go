package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

var pollHistoryLimit int

var pollCmd = &cobra.Command{
	Use:   "poll <user>",
	Short: "Run one poll cycle for a user now",
	Long: `Fetches new heart-rate readings for the user, scores them against the
baseline and stores them, exactly as the scheduler would.

A cycle started this way counts like a scheduled one: failures add to the
user's backoff and a rejected refresh suspends the user.

Examples:
  hrwatch poll alice@example.com
  hrwatch poll history alice@example.com --limit 5
  hrwatch poll resume alice@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runPoll,
}

var pollResumeCmd = &cobra.Command{
	Use:   "resume <user>",
	Short: "Clear a user's suspension and failure count",
	Args:  cobra.ExactArgs(1),
	RunE:  runPollResume,
}

var pollHistoryCmd = &cobra.Command{
	Use:   "history <user>",
	Short: "Show a user's recent poll cycles",
	Args:  cobra.ExactArgs(1),
	RunE:  runPollHistory,
}

func init() {
	pollHistoryCmd.Flags().IntVarP(&pollHistoryLimit, "limit", "n", 20, "maximum number of cycles to show")

	pollCmd.AddCommand(pollResumeCmd)
	pollCmd.AddCommand(pollHistoryCmd)
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	app, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	userID := args[0]
	rec, err := app.Scheduler.PollNow(cmd.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPollInProgress):
			return fmt.Errorf("a poll for %s is already running", userID)
		case domain.NeedsReauth(err):
			return fmt.Errorf("poll for %s failed, run 'hrwatch auth login' again: %w", userID, err)
		}
		if rec == nil {
			return err
		}
	}

	cmd.Printf("Polled %s in %s: %s\n", userID, rec.EndedAt.Sub(rec.StartedAt).Round(time.Millisecond), describeRecord(rec))
	return err
}

func runPollResume(cmd *cobra.Command, args []string) error {
	app, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	userID := args[0]
	if err := app.Scheduler.Resume(cmd.Context(), userID); err != nil {
		return err
	}
	cmd.Printf("Resumed %s. It will be polled on the next dispatch.\n", userID)
	return nil
}

func runPollHistory(cmd *cobra.Command, args []string) error {
	app, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	userID := args[0]
	records, err := app.Samples.History(cmd.Context(), userID, pollHistoryLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		cmd.Printf("No poll cycles recorded for %s.\n", userID)
		return nil
	}

	cmd.Printf("%-20s %-10s %-9s %s\n", "STARTED", "DURATION", "STATUS", "RESULT")
	for i := range records {
		rec := &records[i]
		cmd.Printf("%-20s %-10s %-9s %s\n",
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.EndedAt.Sub(rec.StartedAt).Round(time.Millisecond),
			rec.Status,
			describeRecord(rec))
	}
	return nil
}

// describeRecord summarises a cycle's outcome in one line.
func describeRecord(rec *domain.PollRecord) string {
	if rec.Status == domain.StatusFailed {
		return rec.Error
	}
	return fmt.Sprintf("%d new samples, %d anomalies", rec.SamplesStored, rec.Anomalies)
}
