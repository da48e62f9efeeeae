package driven

import (
	"context"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// TokenRefresher performs the OAuth refresh-token grant.
//
// Implementations must return an error wrapping domain.ErrRefreshRejected
// when the authorisation server refuses the grant (revoked or already
// used refresh token), and domain.ErrTransient for network and 5xx
// failures. The two are handled very differently by the caller.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (domain.TokenGrant, error)
}
