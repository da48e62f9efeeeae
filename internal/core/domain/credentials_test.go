package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredential_ValidAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	skew := 5 * time.Minute

	tests := []struct {
		name     string
		cred     Credential
		expected bool
	}{
		{"far from expiry", Credential{AccessToken: "a", ExpiresAt: now.Add(time.Hour)}, true},
		{"inside skew window", Credential{AccessToken: "a", ExpiresAt: now.Add(4 * time.Minute)}, false},
		{"exactly at skew boundary", Credential{AccessToken: "a", ExpiresAt: now.Add(skew)}, false},
		{"expired", Credential{AccessToken: "a", ExpiresAt: now.Add(-time.Minute)}, false},
		{"empty token", Credential{ExpiresAt: now.Add(time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cred.ValidAt(now, skew))
		})
	}
}

func TestCredential_Recoverable(t *testing.T) {
	now := time.Now()
	expired := Credential{AccessToken: "a", ExpiresAt: now.Add(-time.Hour)}
	assert.False(t, expired.Recoverable(now, 0))

	expired.RefreshToken = "r"
	assert.True(t, expired.HasRefreshToken())
	assert.True(t, expired.Recoverable(now, 0))
}

func TestTokenGrant_Apply(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(24 * time.Hour)
	old := Credential{
		UserID:       "u@example.com",
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		TokenType:    "Bearer",
		ExpiresAt:    created.Add(time.Hour),
		CreatedAt:    created,
		UpdatedAt:    created,
	}

	got := TokenGrant{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresIn:    24 * time.Hour,
	}.Apply(old, now)

	assert.Equal(t, "u@example.com", got.UserID)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "new-refresh", got.RefreshToken)
	assert.Equal(t, "Bearer", got.TokenType)
	assert.Equal(t, now.Add(24*time.Hour), got.ExpiresAt)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, now, got.UpdatedAt)

	// The input is not modified.
	assert.Equal(t, "old-refresh", old.RefreshToken)
}
