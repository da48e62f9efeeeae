package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/custodia-labs/hrwatch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hrwatch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/services"
)

const testConfig = `
[polling]
tick = "50ms"
initial_lookback = "1h"
shutdown_timeout = "2s"

[oauth]
client_id = "test-client"
client_secret = "test-secret"
token_url = "%s/oauth/token"

[api]
base_url = "%s"

[notify]
log = false
`

// fakeVendor serves the heart-rate, personal info and token endpoints.
type fakeVendor struct {
	*httptest.Server

	mu       sync.Mutex
	readings []map[string]any
	tokenCalls int
}

func newFakeVendor(t *testing.T) *fakeVendor {
	t.Helper()
	v := &fakeVendor{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/usercollection/heartrate", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		v.mu.Lock()
		data := v.readings
		v.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "next_token": nil})
	})
	mux.HandleFunc("/v2/usercollection/personal_info", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "u-1", "email": "alice@example.com"})
	})
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, _ *http.Request) {
		v.mu.Lock()
		v.tokenCalls++
		n := v.tokenCalls
		v.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  fmt.Sprintf("at-%d", n),
			"refresh_token": fmt.Sprintf("rt-%d", n),
			"token_type":    "Bearer",
			"expires_in":    86400,
		})
	})
	v.Server = httptest.NewServer(mux)
	t.Cleanup(v.Close)
	return v
}

func (v *fakeVendor) setReadings(readings ...domain.Reading) {
	data := make([]map[string]any, 0, len(readings))
	for _, r := range readings {
		data = append(data, map[string]any{
			"bpm":       r.BPM,
			"source":    r.Source,
			"timestamp": r.ObservedAt.UTC().Format(time.RFC3339),
		})
	}
	v.mu.Lock()
	v.readings = data
	v.mu.Unlock()
}

// cliEnv points every command at memory stores and a fake vendor.
type cliEnv struct {
	vendor     *fakeVendor
	configPath string
	creds      *memory.CredentialStore
	samples    *memory.SampleStore
	states     *memory.PollStateStore
	repo       *services.Repository
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	vendor := newFakeVendor(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(testConfig, vendor.URL, vendor.URL)), 0600))

	env := &cliEnv{
		vendor:     vendor,
		configPath: path,
		creds:      memory.NewCredentialStore(),
		samples:    memory.NewSampleStore(),
		states:     memory.NewPollStateStore(),
	}
	env.repo = services.NewRepository(env.creds, env.samples, env.samples, env.states)

	prev := openApp
	openApp = func(appOptions) (*App, error) {
		store, err := file.NewStore(path, nil)
		if err != nil {
			return nil, err
		}
		return newApp(store, env.repo, zap.NewNop())
	}
	t.Cleanup(func() { openApp = prev })
	return env
}

func (e *cliEnv) authorize(t *testing.T, userID string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, e.creds.Put(context.Background(), domain.Credential{
		UserID:       userID,
		AccessToken:  "at-0",
		RefreshToken: "rt-0",
		TokenType:    "Bearer",
		ExpiresAt:    now.Add(time.Hour),
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
}

func (e *cliEnv) suspend(t *testing.T, userID string, reason domain.Suspension) {
	t.Helper()
	require.NoError(t, e.states.SavePollState(context.Background(), &domain.PollState{
		UserID:              userID,
		LastStatus:          domain.StatusFailed,
		ConsecutiveFailures: 3,
		LastError:           "refresh rejected",
		Suspension:          reason,
		SuspendedAt:         time.Now(),
	}))
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
