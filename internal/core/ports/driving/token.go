package driving

import "context"

// TokenManager hands out access tokens that are valid for at least the
// configured skew margin, refreshing them when needed.
type TokenManager interface {
	// GetValidToken returns a usable access token for the user.
	GetValidToken(ctx context.Context, userID string) (string, error)

	// ForceRefresh runs the refresh grant regardless of expiry and
	// returns the new access token.
	ForceRefresh(ctx context.Context, userID string) (string, error)
}
