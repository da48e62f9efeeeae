package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// Repository is the facade over the two databases. Credentials live in
// one store and heart-rate data in another; user_id is the only link
// between them and the facade is what keeps it consistent.
type Repository struct {
	credentials driven.CredentialStore
	samples     driven.SampleStore
	baselines   driven.BaselineStore
	pollStates  driven.PollStateStore
}

// NewRepository creates a repository facade.
func NewRepository(
	credentials driven.CredentialStore,
	samples driven.SampleStore,
	baselines driven.BaselineStore,
	pollStates driven.PollStateStore,
) *Repository {
	return &Repository{
		credentials: credentials,
		samples:     samples,
		baselines:   baselines,
		pollStates:  pollStates,
	}
}

// Credentials returns the credential store.
func (r *Repository) Credentials() driven.CredentialStore { return r.credentials }

// Samples returns the sample store.
func (r *Repository) Samples() driven.SampleStore { return r.samples }

// Baselines returns the baseline store.
func (r *Repository) Baselines() driven.BaselineStore { return r.baselines }

// PollStates returns the poll state store.
func (r *Repository) PollStates() driven.PollStateStore { return r.pollStates }

// ActiveUsers returns every user that holds a credential.
func (r *Repository) ActiveUsers(ctx context.Context) ([]domain.Credential, error) {
	creds, err := r.credentials.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// Deauthorize deletes a user's credential and scheduler state. Samples and
// the baseline stay so that a later login continues the same history.
func (r *Repository) Deauthorize(ctx context.Context, userID string) error {
	if err := r.credentials.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if err := r.pollStates.DeletePollState(ctx, userID); err != nil {
		return fmt.Errorf("delete poll state: %w", err)
	}
	return nil
}

// PollState returns the user's poll state, or a fresh idle state if the
// user has never been polled.
func (r *Repository) PollState(ctx context.Context, userID string) (*domain.PollState, error) {
	state, err := r.pollStates.GetPollState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get poll state: %w", err)
	}
	if state == nil {
		state = &domain.PollState{UserID: userID}
	}
	return state, nil
}
