package driven

import (
	"context"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// CredentialStore persists one OAuth credential per user.
// Writes are atomic per user: a reader sees either the old pair or the
// new pair, never a mix.
type CredentialStore interface {
	// Get retrieves the credential for a user.
	// Returns domain.ErrNotFound if the user has never authorised.
	Get(ctx context.Context, userID string) (*domain.Credential, error)

	// Put stores a credential. Creates if new, replaces if exists.
	Put(ctx context.Context, cred domain.Credential) error

	// Rotate stores the tokens of a refresh grant only while the stored
	// refresh token is still spent. Returns false without writing when the
	// credential was deleted or replaced since spent was read.
	Rotate(ctx context.Context, cred domain.Credential, spent string) (bool, error)

	// Delete removes the credential for a user.
	// Deleting a missing credential is not an error.
	Delete(ctx context.Context, userID string) error

	// List returns every stored credential ordered by user ID.
	List(ctx context.Context) ([]domain.Credential, error)
}
