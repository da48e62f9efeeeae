package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNewStore_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	store, err := NewStore(path, nil)

	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
	assert.Equal(t, domain.DefaultPollingConfig(), store.Polling())
	assert.Equal(t, domain.DefaultUserSettings(), store.UserSettings("anyone"))
	assert.True(t, store.Config().Notify.Log)
}

func TestNewStore_DefaultPath(t *testing.T) {
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, FileName, filepath.Base(path))
	assert.Equal(t, ".hrwatch", filepath.Base(filepath.Dir(path)))
}

func TestNewStore_ParsesSections(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
data_dir = "/var/lib/hrwatch"

[polling]
interval = "10m"
workers = 8
fetch_timeout = "3s"
rate_budget = 30.0

[detection]
spike_threshold = 0.3

[users."alice@example.com"]
interval = "1m"
alpha = 0.5

[oauth]
client_id = "cid"
redirect_port = 9000

[api]
base_url = "http://localhost:9999"

[notify]
log = false
webhook_url = "https://hooks.example.com/hr"
redis_url = "redis://localhost:6379/0"

[quiet_hours]
timezone = "America/Los_Angeles"
windows = ["08:00-15:00"]
mode = "suppress_poll"
users = ["bob@example.com"]
`)

	store, err := NewStore(path, nil)
	require.NoError(t, err)

	cfg := store.Config()
	assert.Equal(t, "/var/lib/hrwatch", cfg.DataDir)

	p := store.Polling()
	assert.Equal(t, 8, p.Workers)
	assert.Equal(t, 3*time.Second, p.FetchTimeout)
	assert.InDelta(t, 30.0, p.RateBudget, 1e-9)
	// Unset keys keep their defaults.
	assert.Equal(t, domain.DefaultMaxBackoff, p.MaxBackoff)

	global := store.UserSettings("bob@example.com")
	assert.Equal(t, 10*time.Minute, global.PollInterval)
	assert.InDelta(t, 0.3, global.Detection.SpikeThreshold, 1e-9)
	assert.InDelta(t, domain.DefaultAlpha, global.Detection.Alpha, 1e-9)

	alice := store.UserSettings("alice@example.com")
	assert.Equal(t, time.Minute, alice.PollInterval)
	assert.InDelta(t, 0.3, alice.Detection.SpikeThreshold, 1e-9)
	assert.InDelta(t, 0.5, alice.Detection.Alpha, 1e-9)

	assert.Equal(t, "cid", cfg.OAuth.ClientID)
	assert.Equal(t, 9000, cfg.OAuth.RedirectPort)
	assert.Equal(t, "http://localhost:9999", cfg.API.BaseURL)
	assert.False(t, cfg.Notify.Log)
	assert.Equal(t, "https://hooks.example.com/hr", cfg.Notify.WebhookURL)

	q := cfg.QuietHoursConfig()
	assert.Equal(t, domain.QuietSuppressPoll, q.Mode)
	assert.Equal(t, []string{"08:00-15:00"}, q.Windows)
	assert.Equal(t, []string{"bob@example.com"}, q.Users)
}

func TestNewStore_EnvOverrides(t *testing.T) {
	t.Setenv(EnvClientID, "env-id")
	t.Setenv(EnvClientSecret, "env-secret")
	t.Setenv(EnvAPIBase, "http://env")

	path := writeConfig(t, t.TempDir(), `
[oauth]
client_id = "file-id"
`)
	store, err := NewStore(path, nil)
	require.NoError(t, err)

	cfg := store.Config()
	assert.Equal(t, "env-id", cfg.OAuth.ClientID)
	assert.Equal(t, "env-secret", cfg.OAuth.ClientSecret)
	assert.Equal(t, "http://env", cfg.API.BaseURL)
}

func TestNewStore_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"non-positive threshold", "[detection]\nspike_threshold = 0.0\n"},
		{"alpha above one", "[detection]\nalpha = 1.5\n"},
		{"zero interval", "[polling]\ninterval = \"0s\"\n"},
		{"negative user threshold", "[users.\"a\"]\nspike_threshold = -0.1\n"},
		{"bad duration", "[polling]\ninterval = \"soon\"\n"},
		{"unknown key", "[polling]\nintervall = \"5m\"\n"},
		{"unknown quiet mode", "[quiet_hours]\nmode = \"mute\"\n"},
		{"syntax error", "[polling\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := NewStore(path, nil)
			assert.Error(t, err)
		})
	}
}

func TestNewStore_InvalidSettingsWrapInvalidInput(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[detection]\nspike_threshold = -1.0\n")
	_, err := NewStore(path, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_ReloadKeepsOldConfigOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "[polling]\ninterval = \"10m\"\n")
	store, err := NewStore(path, nil)
	require.NoError(t, err)

	var reloaded []Config
	store.OnReload(func(c Config) { reloaded = append(reloaded, c) })

	writeConfig(t, dir, "[detection]\nalpha = 7.0\n")
	assert.Error(t, store.Reload())
	assert.Equal(t, 10*time.Minute, store.UserSettings("x").PollInterval)
	assert.Empty(t, reloaded)

	writeConfig(t, dir, "[polling]\ninterval = \"2m\"\n")
	require.NoError(t, store.Reload())
	assert.Equal(t, 2*time.Minute, store.UserSettings("x").PollInterval)
	require.Len(t, reloaded, 1)
	assert.Equal(t, Duration(2*time.Minute), reloaded[0].Polling.Interval)
}

func TestStore_MarshalMasksSecrets(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[oauth]
client_secret = "s3cret"

[notify]
webhook_token = "tok"
`)
	store, err := NewStore(path, nil)
	require.NoError(t, err)

	out, err := store.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "s3cret")
	assert.Contains(t, string(out), "********")
	assert.Contains(t, string(out), "5m0s")
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	require.NoError(t, WriteDefault(path))
	assert.Error(t, WriteDefault(path))

	store, err := NewStore(path, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPollingConfig(), store.Polling())
	assert.Equal(t, domain.DefaultUserSettings(), store.UserSettings("u"))
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1h30m")))
	assert.Equal(t, Duration(90*time.Minute), d)

	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1h30m0s", string(b))

	assert.Error(t, d.UnmarshalText([]byte("ninety")))
}
