package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

func TestServe_PollsUntilCancelled(t *testing.T) {
	env := newCLIEnv(t)
	env.authorize(t, "alice@example.com")
	env.vendor.setReadings(domain.Reading{BPM: 61, ObservedAt: time.Now().Add(-10 * time.Minute), Source: "rest"})

	app, err := openApp(appOptions{})
	require.NoError(t, err)
	defer app.Close()

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cmd, app) }()

	require.Eventually(t, func() bool {
		last, err := env.samples.Last(context.Background(), "alice@example.com")
		return err == nil && last != nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.Contains(t, buf.String(), "hrwatch serving")
	assert.Contains(t, buf.String(), "Shutting down...")
}

func TestReportFailures(t *testing.T) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetErr(buf)

	failures := make(chan domain.PollFailure)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reportFailures(ctx, cmd, failures)
		close(done)
	}()

	failures <- domain.PollFailure{
		UserID: "alice@example.com", Suspension: domain.SuspensionNeedsReauth, Err: domain.ErrRefreshFailed,
	}
	failures <- domain.PollFailure{
		UserID: "bob@example.com", Suspension: domain.SuspensionHalted, Err: errors.New("bad payload"),
	}
	cancel()
	<-done

	out := buf.String()
	assert.Contains(t, out, "alice@example.com needs to log in again")
	assert.Contains(t, out, "bob@example.com stopped polling: bad payload")
	assert.Contains(t, out, "hrwatch poll resume bob@example.com")
}
