package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hrwatch/internal/adapters/driving/tui"
	"github.com/custodia-labs/hrwatch/internal/logger"
)

var (
	topServe   bool
	topRefresh time.Duration
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Live monitor of users, samples and poll cycles",
	Long: `Opens an interactive monitor showing every user's phase, latest heart
rate and baseline. Select a user for the last hour of samples and recent
poll cycles.

By default the monitor only reads the local store, so run it next to
'hrwatch serve'. With --serve it runs the scheduler itself.

Keys: ↑/↓ select, enter details, p poll now, u resume, r refresh, ? help, q quit.`,
	Args: cobra.NoArgs,
	RunE: runTop,
}

func init() {
	topCmd.Flags().BoolVar(&topServe, "serve", false, "run the scheduler inside the monitor")
	topCmd.Flags().DurationVar(&topRefresh, "refresh", tui.DefaultRefresh, "how often to reload the view")
	rootCmd.AddCommand(topCmd)
}

func runTop(cmd *cobra.Command, _ []string) error {
	if topServe {
		// Scheduler log lines would tear the alt screen.
		logger.SetOutput(io.Discard)
		defer logger.SetOutput(os.Stderr)
	}

	app, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	monitor, err := tui.NewApp(&tui.Ports{
		Scheduler: app.Scheduler,
		Samples:   app.Samples,
	})
	if err != nil {
		return err
	}
	monitor.WithContext(ctx).WithRefresh(topRefresh)

	if !topServe {
		return monitor.Run()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Scheduler.Start(context.WithoutCancel(ctx))
	}()

	runErr := monitor.Run()
	stopErr := app.Scheduler.Stop()
	if startErr := <-errCh; startErr != nil && !errors.Is(startErr, context.Canceled) {
		return errors.Join(runErr, startErr)
	}
	return errors.Join(runErr, stopErr)
}
