package driving

import (
	"context"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// CredentialsService manages user authorisation.
type CredentialsService interface {
	// Authorize stores the tokens from a completed authorisation-code
	// exchange. An existing credential for the user is replaced, which
	// also lifts a needs-reauth suspension on the next dispatch.
	Authorize(ctx context.Context, userID string, grant domain.TokenGrant) (*domain.Credential, error)

	// Get retrieves a user's credential.
	Get(ctx context.Context, userID string) (*domain.Credential, error)

	// List returns every authorised user's credential.
	List(ctx context.Context) ([]domain.Credential, error)

	// Deauthorize removes the credential and the user's poll state.
	// Stored samples and the baseline are kept.
	Deauthorize(ctx context.Context, userID string) error
}
