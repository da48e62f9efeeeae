// Package cli implements the hrwatch command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/hrwatch/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Persistent flags.
var (
	verbose    bool
	configPath string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "hrwatch",
	Short: "Heart-rate ingestion and anomaly detection",
	Long: `hrwatch polls a wearable vendor's API for each authorised user, keeps a
moving-average baseline of their resting heart rate, and raises an event
when a reading spikes above it.

Get started:
  hrwatch config init        # write ~/.hrwatch/config.toml
  hrwatch auth login         # authorise a user in the browser
  hrwatch serve              # poll every authorised user
  hrwatch top                # watch them live`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.hrwatch/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "database directory (default ~/.hrwatch/data)")
}

// SetVersion sets the version reported by `hrwatch version`.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
