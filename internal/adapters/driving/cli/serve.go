package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/logger"
)

var serveEphemeral bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll every authorised user until interrupted",
	Long: `Runs the polling scheduler in the foreground. Each authorised user is
polled on their interval; readings are scored against the user's baseline
and anomalies are sent to the configured notifiers.

The config file is watched: valid edits apply without a restart, invalid
ones are logged and ignored. SIGINT or SIGTERM stops dispatching and lets
in-flight cycles finish for up to shutdown_timeout.

With --ephemeral every store lives in memory, which is useful for trying
a configuration without touching the databases.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveEphemeral, "ephemeral", false, "keep all state in memory")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := openApp(appOptions{ephemeral: serveEphemeral})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cmd, app)
}

// serve runs the scheduler until ctx is done, then stops it gracefully.
func serve(ctx context.Context, cmd *cobra.Command, app *App) error {
	log := logger.Named("serve")

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		if err := app.Config.Watch(watchCtx); err != nil {
			log.Warn("config hot reload disabled", zap.Error(err))
		}
	}()
	go reportFailures(watchCtx, cmd, app.Scheduler.Failures())

	// The scheduler gets its own context so that a signal drains
	// in-flight cycles through Stop instead of cancelling them at once.
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Scheduler.Start(context.WithoutCancel(ctx))
	}()
	cmd.Printf("hrwatch serving (config %s)\n", app.Config.Path())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	cmd.Println("Shutting down...")
	if err := app.Scheduler.Stop(); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reportFailures prints users that stop being scheduled.
func reportFailures(ctx context.Context, cmd *cobra.Command, failures <-chan domain.PollFailure) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-failures:
			switch f.Suspension {
			case domain.SuspensionNeedsReauth:
				cmd.PrintErrf("%s needs to log in again: run `hrwatch auth login` (%v)\n", f.UserID, f.Err)
			default:
				cmd.PrintErrf("%s stopped polling: %v; run `hrwatch poll resume %s` once fixed\n",
					f.UserID, f.Err, f.UserID)
			}
		}
	}
}
