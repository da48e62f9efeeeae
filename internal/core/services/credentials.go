package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driving"
)

// Ensure CredentialsService implements the interface.
var _ driving.CredentialsService = (*CredentialsService)(nil)

// CredentialsService manages user authorisation.
type CredentialsService struct {
	repo *Repository
	now  func() time.Time
}

// NewCredentialsService creates a new credentials service.
func NewCredentialsService(repo *Repository) *CredentialsService {
	return &CredentialsService{
		repo: repo,
		now:  time.Now,
	}
}

// Authorize stores the tokens from a completed authorisation-code exchange.
func (s *CredentialsService) Authorize(
	ctx context.Context,
	userID string,
	grant domain.TokenGrant,
) (*domain.Credential, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", domain.ErrInvalidInput)
	}
	if grant.AccessToken == "" {
		return nil, fmt.Errorf("%w: grant has no access token", domain.ErrInvalidInput)
	}

	now := s.now()
	cred := domain.Credential{UserID: userID, CreatedAt: now}
	existing, err := s.repo.Credentials().Get(ctx, userID)
	switch {
	case err == nil:
		cred.CreatedAt = existing.CreatedAt
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get credential: %w", err)
	}

	cred = grant.Apply(cred, now)
	if err := s.repo.Credentials().Put(ctx, cred); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}
	return &cred, nil
}

// Get retrieves a user's credential.
func (s *CredentialsService) Get(ctx context.Context, userID string) (*domain.Credential, error) {
	return s.repo.Credentials().Get(ctx, userID)
}

// List returns every authorised user's credential.
func (s *CredentialsService) List(ctx context.Context) ([]domain.Credential, error) {
	return s.repo.ActiveUsers(ctx)
}

// Deauthorize removes the credential and poll state for a user.
func (s *CredentialsService) Deauthorize(ctx context.Context, userID string) error {
	if _, err := s.repo.Credentials().Get(ctx, userID); err != nil {
		return err
	}
	return s.repo.Deauthorize(ctx, userID)
}
