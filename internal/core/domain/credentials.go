package domain

import "time"

// Credential stores one user's OAuth tokens for the wearable vendor API.
// UserID is the single join key shared with every other store.
type Credential struct {
	// UserID identifies the user (the vendor account email).
	UserID string `json:"user_id"`

	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	// Vendors may rotate it on every refresh.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type,omitempty"`
	// ExpiresAt is the authoritative expiry of AccessToken.
	ExpiresAt time.Time `json:"expires_at"`

	// CreatedAt is when the user first authorised.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the tokens last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidAt reports whether the access token can still be used at now,
// keeping skew of headroom before ExpiresAt.
func (c *Credential) ValidAt(now time.Time, skew time.Duration) bool {
	if c.AccessToken == "" {
		return false
	}
	return now.Before(c.ExpiresAt.Add(-skew))
}

// HasRefreshToken returns true if a refresh token is available.
func (c *Credential) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// Recoverable reports whether a credential that is no longer valid can
// still be renewed without the user logging in again.
func (c *Credential) Recoverable(now time.Time, skew time.Duration) bool {
	return c.ValidAt(now, skew) || c.HasRefreshToken()
}

// TokenGrant is the result of a successful OAuth token request.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	// ExpiresIn is the lifetime of AccessToken as reported by the server.
	ExpiresIn time.Duration
}

// Apply returns a copy of c carrying the tokens from g, issued at now.
// Every field the grant returns replaces the stored one; the previous
// refresh token is never kept alongside a new one.
func (g TokenGrant) Apply(c Credential, now time.Time) Credential {
	c.AccessToken = g.AccessToken
	c.RefreshToken = g.RefreshToken
	if g.TokenType != "" {
		c.TokenType = g.TokenType
	}
	c.ExpiresAt = now.Add(g.ExpiresIn)
	c.UpdatedAt = now
	return c
}
