package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

func newTestRepository() (*Repository, *mockCredentialStore, *mockSampleStore, *mockPollStateStore) {
	creds := newMockCredentialStore()
	samples := newMockSampleStore()
	states := newMockPollStateStore()
	return NewRepository(creds, samples, samples, states), creds, samples, states
}

func TestCredentialsService_Authorize(t *testing.T) {
	repo, store, _, _ := newTestRepository()
	svc := NewCredentialsService(repo)
	svc.now = func() time.Time { return testNow }

	cred, err := svc.Authorize(context.Background(), "a@example.com", domain.TokenGrant{
		AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer", ExpiresIn: time.Hour,
	})

	require.NoError(t, err)
	assert.Equal(t, testNow, cred.CreatedAt)
	assert.Equal(t, testNow.Add(time.Hour), cred.ExpiresAt)
	assert.Equal(t, "rt", store.get("a@example.com").RefreshToken)
}

func TestCredentialsService_AuthorizeKeepsCreatedAt(t *testing.T) {
	repo, store, _, _ := newTestRepository()
	created := testNow.Add(-48 * time.Hour)
	require.NoError(t, store.Put(context.Background(), domain.Credential{
		UserID: "a", AccessToken: "old", CreatedAt: created, UpdatedAt: created,
	}))
	svc := NewCredentialsService(repo)
	svc.now = func() time.Time { return testNow }

	cred, err := svc.Authorize(context.Background(), "a", domain.TokenGrant{AccessToken: "new", ExpiresIn: time.Hour})

	require.NoError(t, err)
	assert.Equal(t, created, cred.CreatedAt)
	assert.Equal(t, testNow, cred.UpdatedAt)
	assert.Equal(t, "new", store.get("a").AccessToken)
}

func TestCredentialsService_AuthorizeValidation(t *testing.T) {
	repo, _, _, _ := newTestRepository()
	svc := NewCredentialsService(repo)

	_, err := svc.Authorize(context.Background(), "", domain.TokenGrant{AccessToken: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Authorize(context.Background(), "a", domain.TokenGrant{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCredentialsService_DeauthorizeCascades(t *testing.T) {
	repo, store, samples, states := newTestRepository()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, domain.Credential{UserID: "a", AccessToken: "at"}))
	require.NoError(t, states.SavePollState(ctx, &domain.PollState{UserID: "a", ConsecutiveFailures: 2}))
	_, err := samples.Append(ctx, sampleAt("a", 60, testNow))
	require.NoError(t, err)

	svc := NewCredentialsService(repo)
	require.NoError(t, svc.Deauthorize(ctx, "a"))

	_, err = svc.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	state, err := states.GetPollState(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, state)
	assert.Equal(t, 1, samples.count("a"), "samples survive logout")

	assert.ErrorIs(t, svc.Deauthorize(ctx, "a"), domain.ErrNotFound)
}

func TestSampleService_ListLimit(t *testing.T) {
	repo, _, samples, _ := newTestRepository()
	ctx := context.Background()
	for i := range 5 {
		_, err := samples.Append(ctx, sampleAt("a", 60+i, testNow.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	svc := NewSampleService(repo)

	all, err := svc.List(ctx, "a", testNow, testNow.Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	some, err := svc.List(ctx, "a", testNow, testNow.Add(time.Hour), 2)
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, 60, some[0].BPM)

	latest, err := svc.Latest(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 64, latest.BPM)
}
