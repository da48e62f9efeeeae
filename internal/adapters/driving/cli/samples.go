package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

var (
	samplesSince time.Duration
	samplesLimit int
)

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Inspect stored heart-rate samples",
	Long: `Reads samples and baselines from the local store. Nothing is fetched
from the vendor; use 'hrwatch poll' for that.

Examples:
  hrwatch samples list alice@example.com --since 6h
  hrwatch samples latest alice@example.com
  hrwatch samples baseline alice@example.com`,
}

var samplesListCmd = &cobra.Command{
	Use:   "list <user>",
	Short: "List a user's samples, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runSamplesList,
}

var samplesLatestCmd = &cobra.Command{
	Use:   "latest <user>",
	Short: "Show a user's most recent sample",
	Args:  cobra.ExactArgs(1),
	RunE:  runSamplesLatest,
}

var samplesBaselineCmd = &cobra.Command{
	Use:   "baseline <user>",
	Short: "Show a user's current baseline",
	Args:  cobra.ExactArgs(1),
	RunE:  runSamplesBaseline,
}

func init() {
	samplesListCmd.Flags().DurationVar(&samplesSince, "since", 24*time.Hour, "how far back to list")
	samplesListCmd.Flags().IntVarP(&samplesLimit, "limit", "n", 0, "maximum number of samples (0 = all)")

	samplesCmd.AddCommand(samplesListCmd)
	samplesCmd.AddCommand(samplesLatestCmd)
	samplesCmd.AddCommand(samplesBaselineCmd)
	rootCmd.AddCommand(samplesCmd)
}

func runSamplesList(cmd *cobra.Command, args []string) error {
	if samplesSince <= 0 {
		return fmt.Errorf("--since must be positive, got %s", samplesSince)
	}
	app, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	userID := args[0]
	now := time.Now()
	samples, err := app.Samples.List(cmd.Context(), userID, now.Add(-samplesSince), now, samplesLimit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		cmd.Printf("No samples for %s in the last %s.\n", userID, samplesSince)
		return nil
	}

	printSampleHeader(cmd)
	for i := range samples {
		printSample(cmd, &samples[i])
	}
	return nil
}

func runSamplesLatest(cmd *cobra.Command, args []string) error {
	app, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	userID := args[0]
	s, err := app.Samples.Latest(cmd.Context(), userID)
	if err != nil {
		return err
	}
	if s == nil {
		cmd.Printf("No samples stored for %s.\n", userID)
		return nil
	}
	printSampleHeader(cmd)
	printSample(cmd, s)
	return nil
}

func runSamplesBaseline(cmd *cobra.Command, args []string) error {
	app, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	userID := args[0]
	b, err := app.Samples.Baseline(cmd.Context(), userID)
	if err != nil {
		return err
	}
	if b == nil {
		cmd.Printf("No baseline for %s yet. It is seeded by the first stored sample.\n", userID)
		return nil
	}
	det := app.Config.UserSettings(userID).Detection
	cmd.Printf("User:       %s\n", b.UserID)
	cmd.Printf("Baseline:   %.1f bpm\n", b.BPM)
	cmd.Printf("Samples:    %d\n", b.Samples)
	cmd.Printf("Updated:    %s\n", b.UpdatedAt.Local().Format(time.RFC1123))
	cmd.Printf("Threshold:  %.0f%% (alerts at %.1f bpm)\n", det.SpikeThreshold*100, b.BPM*(1+det.SpikeThreshold))
	return nil
}

func printSampleHeader(cmd *cobra.Command) {
	cmd.Printf("%-20s %5s %9s %s\n", "OBSERVED", "BPM", "BASELINE", "SOURCE")
}

func printSample(cmd *cobra.Command, s *domain.Sample) {
	baseline := "-"
	if s.BaselineBPM > 0 {
		baseline = fmt.Sprintf("%.1f", s.BaselineBPM)
	}
	flag := ""
	if s.Anomalous {
		flag = "ANOMALY"
	}
	source := s.Source
	if source == "" {
		source = "-"
	}
	cmd.Printf("%-20s %5d %9s %-8s %s\n",
		s.ObservedAt.Local().Format("2006-01-02 15:04:05"), s.BPM, baseline, source, flag)
}
