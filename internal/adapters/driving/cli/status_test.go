package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

func TestStatus_Empty(t *testing.T) {
	newCLIEnv(t)

	out, err := execute("status")

	require.NoError(t, err)
	assert.Contains(t, out, "No authorised users")
}

func TestStatus_ListsUsers(t *testing.T) {
	env := newCLIEnv(t)
	env.authorize(t, "alice@example.com")
	env.authorize(t, "bob@example.com")
	env.suspend(t, "bob@example.com", domain.SuspensionNeedsReauth)

	out, err := execute("status")

	require.NoError(t, err)
	assert.Contains(t, out, "USER")
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "due")
	assert.Contains(t, out, "bob@example.com")
	assert.Contains(t, out, "reauth")
	assert.Contains(t, out, "refresh rejected")
}

func TestPhaseLabel(t *testing.T) {
	halted := &domain.UserSnapshot{Phase: domain.PhaseSuspended, State: domain.PollState{Suspension: domain.SuspensionHalted}}
	reauth := &domain.UserSnapshot{Phase: domain.PhaseSuspended, State: domain.PollState{Suspension: domain.SuspensionNeedsReauth}}
	idle := &domain.UserSnapshot{Phase: domain.PhaseIdle}

	assert.Equal(t, "suspended", phaseLabel(halted))
	assert.Equal(t, "reauth", phaseLabel(reauth))
	assert.Equal(t, "idle", phaseLabel(idle))
}

func TestNextDue(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "-", nextDue(now, &domain.UserSnapshot{Phase: domain.PhaseSuspended}))
	assert.Equal(t, "now", nextDue(now, &domain.UserSnapshot{Phase: domain.PhaseDue}))
	assert.Equal(t, "in 3m", nextDue(now, &domain.UserSnapshot{
		Phase: domain.PhaseIdle, NextDue: now.Add(3 * time.Minute),
	}))
}
