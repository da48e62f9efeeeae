package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driving"
	"github.com/custodia-labs/hrwatch/internal/logger"
)

// Ensure TokenManager implements the interface.
var _ driving.TokenManager = (*TokenManager)(nil)

// TokenManager keeps per-user access tokens valid through the
// refresh-token grant.
//
// Refreshes for one user are coalesced: concurrent callers share a single
// grant, so a rotating refresh token is never presented twice. The grant
// itself runs detached from the caller's context, bounded only by
// RefreshTimeout; abandoning it halfway could consume a rotated refresh
// token without persisting its replacement.
type TokenManager struct {
	store     driven.CredentialStore
	refresher driven.TokenRefresher
	settings  driven.SettingsProvider
	logger    *zap.Logger

	group singleflight.Group
	now   func() time.Time
}

// NewTokenManager creates a token manager.
func NewTokenManager(
	store driven.CredentialStore,
	refresher driven.TokenRefresher,
	settings driven.SettingsProvider,
	log *zap.Logger,
) *TokenManager {
	return &TokenManager{
		store:     store,
		refresher: refresher,
		settings:  settings,
		logger:    logger.OrNop(log).Named("tokens"),
		now:       time.Now,
	}
}

// GetValidToken returns an access token that stays valid for at least the
// configured skew margin, refreshing the credential if it does not.
func (m *TokenManager) GetValidToken(ctx context.Context, userID string) (string, error) {
	cred, err := m.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if cred.ValidAt(m.now(), m.settings.Polling().SkewMargin) {
		return cred.AccessToken, nil
	}
	return m.refresh(ctx, userID, false)
}

// ForceRefresh runs the refresh grant even if the stored token looks valid.
// Used when the vendor API rejects a token before its recorded expiry.
func (m *TokenManager) ForceRefresh(ctx context.Context, userID string) (string, error) {
	return m.refresh(ctx, userID, true)
}

func (m *TokenManager) load(ctx context.Context, userID string) (*domain.Credential, error) {
	cred, err := m.store.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return cred, nil
}

func (m *TokenManager) refresh(ctx context.Context, userID string, force bool) (string, error) {
	ch := m.group.DoChan(userID, func() (any, error) {
		return m.doRefresh(userID, force)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("refresh token: %w: %w", domain.ErrTransient, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// doRefresh runs inside the singleflight group for userID.
func (m *TokenManager) doRefresh(userID string, force bool) (string, error) {
	cfg := m.settings.Polling()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RefreshTimeout)
	defer cancel()

	// Re-read under the flight: a caller that just finished may already
	// have stored a fresh pair.
	cred, err := m.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if !force && cred.ValidAt(m.now(), cfg.SkewMargin) {
		return cred.AccessToken, nil
	}
	if !cred.HasRefreshToken() {
		return "", fmt.Errorf("user %s has no refresh token: %w", userID, domain.ErrRefreshFailed)
	}

	m.logger.Debug("refreshing access token",
		zap.String("user_id", userID),
		zap.Time("expires_at", cred.ExpiresAt),
		zap.Bool("forced", force))

	grant, err := m.refresher.Refresh(ctx, cred.RefreshToken)
	switch {
	case errors.Is(err, domain.ErrRefreshRejected):
		m.logger.Warn("refresh grant rejected", zap.String("user_id", userID), zap.Error(err))
		return "", fmt.Errorf("user %s: %w: %w", userID, domain.ErrRefreshFailed, err)
	case err != nil && errors.Is(err, domain.ErrTransient):
		return "", fmt.Errorf("refresh token for %s: %w", userID, err)
	case err != nil:
		return "", fmt.Errorf("refresh token for %s: %w: %w", userID, domain.ErrTransient, err)
	}
	if grant.AccessToken == "" {
		return "", fmt.Errorf("user %s: empty access token in grant: %w", userID, domain.ErrRefreshFailed)
	}

	now := m.now()
	next := grant.Apply(*cred, now)

	// The old refresh token may already be spent, so the new pair is
	// stored even if it turns out to be unusable below.
	rotated, err := m.store.Rotate(ctx, next, cred.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("save refreshed credential: %w", err)
	}
	if !rotated {
		return m.afterLostRotation(ctx, userID)
	}

	if !next.ValidAt(now, cfg.SkewMargin) {
		return "", fmt.Errorf("user %s: refreshed token expires at %s, inside skew margin: %w",
			userID, next.ExpiresAt.Format(time.RFC3339), domain.ErrRefreshFailed)
	}

	m.logger.Info("access token refreshed",
		zap.String("user_id", userID),
		zap.Time("expires_at", next.ExpiresAt),
		zap.Bool("rotated", next.RefreshToken != cred.RefreshToken))
	return next.AccessToken, nil
}

// afterLostRotation handles a grant whose write-back found the credential
// deleted or replaced by a new login. The grant's tokens are discarded.
func (m *TokenManager) afterLostRotation(ctx context.Context, userID string) (string, error) {
	m.logger.Info("credential changed during refresh, discarding grant", zap.String("user_id", userID))
	cred, err := m.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if !cred.ValidAt(m.now(), m.settings.Polling().SkewMargin) {
		return "", fmt.Errorf("user %s: credential replaced during refresh: %w", userID, domain.ErrTransient)
	}
	return cred.AccessToken, nil
}
