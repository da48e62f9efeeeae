package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

func TestPollStateStore_SaveGetList(t *testing.T) {
	store := NewPollStateStore()
	ctx := context.Background()

	got, err := store.GetPollState(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.SavePollState(ctx, &domain.PollState{UserID: "bob", ConsecutiveFailures: 2}))
	require.NoError(t, store.SavePollState(ctx, &domain.PollState{UserID: "alice", Suspension: domain.SuspensionHalted}))

	got, err = store.GetPollState(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.Suspended())

	list, err := store.ListPollStates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].UserID)
	assert.Equal(t, 2, list[1].ConsecutiveFailures)
}

func TestPollStateStore_SaveInvalid(t *testing.T) {
	store := NewPollStateStore()
	assert.ErrorIs(t, store.SavePollState(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.RecordPoll(context.Background(), &domain.PollRecord{}), domain.ErrInvalidInput)
}

func TestPollStateStore_HistoryAndPrune(t *testing.T) {
	store := NewPollStateStore()
	ctx := context.Background()
	for i := 1; i <= 6; i++ {
		require.NoError(t, store.RecordPoll(ctx, &domain.PollRecord{UserID: "alice", SamplesStored: i}))
	}
	require.NoError(t, store.RecordPoll(ctx, &domain.PollRecord{UserID: "bob", SamplesStored: 1}))

	history, err := store.GetPollHistory(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 6, history[0].SamplesStored)
	assert.Equal(t, 5, history[1].SamplesStored)

	require.NoError(t, store.PruneHistory(ctx, 3))
	history, err = store.GetPollHistory(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 4, history[2].SamplesStored)

	history, err = store.GetPollHistory(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestPollStateStore_Delete(t *testing.T) {
	store := NewPollStateStore()
	ctx := context.Background()
	require.NoError(t, store.SavePollState(ctx, &domain.PollState{UserID: "alice"}))
	require.NoError(t, store.RecordPoll(ctx, &domain.PollRecord{UserID: "alice"}))

	require.NoError(t, store.DeletePollState(ctx, "alice"))

	got, err := store.GetPollState(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)
	history, err := store.GetPollHistory(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}
