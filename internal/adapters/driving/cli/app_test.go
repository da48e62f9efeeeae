package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/custodia-labs/hrwatch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hrwatch/internal/adapters/driven/notify"
	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

func TestBuildNotifier_NoneConfigured(t *testing.T) {
	n, closeFn, err := buildNotifier(file.NotifySection{}, zap.NewNop())

	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Nil(t, closeFn)
}

func TestBuildNotifier_FansOut(t *testing.T) {
	n, closeFn, err := buildNotifier(file.NotifySection{
		Log:        true,
		WebhookURL: "http://127.0.0.1:1/hook",
		RedisURL:   "redis://127.0.0.1:6379/0",
	}, zap.NewNop())

	require.NoError(t, err)
	require.NotNil(t, closeFn)
	defer closeFn()
	multi, ok := n.(notify.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 3)
}

func TestBuildNotifier_BadRedisURL(t *testing.T) {
	_, _, err := buildNotifier(file.NotifySection{RedisURL: "not-a-url"}, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestResolveDataDir(t *testing.T) {
	prev := dataDir
	defer func() { dataDir = prev }()

	dataDir = ""
	dir, err := resolveDataDir(file.Config{DataDir: "/srv/hrwatch"})
	require.NoError(t, err)
	assert.Equal(t, "/srv/hrwatch", dir)

	dataDir = "/tmp/override"
	dir, err = resolveDataDir(file.Config{DataDir: "/srv/hrwatch"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", dir)

	dataDir = ""
	dir, err = resolveDataDir(file.Config{})
	require.NoError(t, err)
	assert.Equal(t, "data", filepath.Base(dir))
}

func TestOAuthConfig_CopiesClient(t *testing.T) {
	cfg := file.Default()
	cfg.OAuth.ClientID = "id"
	cfg.OAuth.ClientSecret = "secret"
	cfg.OAuth.TokenURL = "http://token"

	oc := oauthConfig(cfg)

	assert.Equal(t, "id", oc.ClientID)
	assert.Equal(t, "secret", oc.ClientSecret)
	assert.Equal(t, "http://token", oc.TokenURL)
	assert.Equal(t, cfg.OAuth.Scopes, oc.Scopes)
	assert.Empty(t, oc.RedirectURL)
}

func TestApplyReload_SwapsQuietHours(t *testing.T) {
	newCLIEnv(t)
	app, err := openApp(appOptions{})
	require.NoError(t, err)
	defer app.Close()

	noon := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, domain.Allow, app.policy.Decide("alice@example.com", noon))

	cfg := app.Config.Config()
	cfg.QuietHours = file.QuietHoursSection{Windows: []string{"11:00-13:00"}, Mode: "suppress_poll"}
	app.applyReload(cfg)

	assert.True(t, app.policy.Decide("alice@example.com", noon).SkipPoll)

	// An invalid policy keeps the previous one.
	cfg.QuietHours.Mode = "sometimes"
	app.applyReload(cfg)

	assert.True(t, app.policy.Decide("alice@example.com", noon).SkipPoll)
}
