package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

func TestAuthCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0, len(authCmd.Commands()))
	for _, c := range authCmd.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{"login", "list", "logout", "refresh"}, names)
}

func TestAuthList_Empty(t *testing.T) {
	newCLIEnv(t)

	out, err := execute("auth", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No authorised users")
}

func TestAuthList_ShowsSuspension(t *testing.T) {
	env := newCLIEnv(t)
	env.authorize(t, "alice@example.com")
	env.authorize(t, "bob@example.com")
	env.suspend(t, "bob@example.com", domain.SuspensionNeedsReauth)

	out, err := execute("auth", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "bob@example.com")
	assert.Contains(t, out, "needs_reauth")
}

func TestAuthLogout_RemovesCredentialKeepsSamples(t *testing.T) {
	env := newCLIEnv(t)
	env.authorize(t, "alice@example.com")
	ctx := context.Background()
	_, err := env.samples.Append(ctx, domain.Sample{
		UserID: "alice@example.com", BPM: 61, ObservedAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	out, err := execute("auth", "logout", "alice@example.com")

	require.NoError(t, err)
	assert.Contains(t, out, "Logged out alice@example.com")
	_, err = env.creds.Get(ctx, "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	last, err := env.samples.Last(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotNil(t, last)
}

func TestAuthLogout_UnknownUser(t *testing.T) {
	newCLIEnv(t)

	_, err := execute("auth", "logout", "nobody@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authorised")
}

func TestAuthLogout_RequiresUser(t *testing.T) {
	newCLIEnv(t)

	_, err := execute("auth", "logout")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAuthRefresh_RotatesTokens(t *testing.T) {
	env := newCLIEnv(t)
	env.authorize(t, "alice@example.com")

	out, err := execute("auth", "refresh", "alice@example.com")

	require.NoError(t, err)
	assert.Contains(t, out, "Refreshed alice@example.com")
	cred, err := env.creds.Get(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "at-1", cred.AccessToken)
	assert.Equal(t, "rt-1", cred.RefreshToken)
	assert.True(t, cred.ExpiresAt.After(time.Now().Add(23*time.Hour)))
}

func TestAuthRefresh_UnknownUser(t *testing.T) {
	newCLIEnv(t)

	_, err := execute("auth", "refresh", "nobody@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth login")
}

type stubExchanger struct {
	grant domain.TokenGrant
	err   error
	codes []string
}

func (s *stubExchanger) Exchange(_ context.Context, code string) (domain.TokenGrant, error) {
	s.codes = append(s.codes, code)
	return s.grant, s.err
}

func TestCompleteLogin_StoresCredentialUnderEmail(t *testing.T) {
	env := newCLIEnv(t)
	app, err := openApp(appOptions{})
	require.NoError(t, err)
	defer app.Close()

	ex := &stubExchanger{grant: domain.TokenGrant{
		AccessToken: "at-login", RefreshToken: "rt-login", TokenType: "Bearer", ExpiresIn: time.Hour,
	}}
	cred, err := completeLogin(context.Background(), app, ex, "the-code")

	require.NoError(t, err)
	assert.Equal(t, []string{"the-code"}, ex.codes)
	assert.Equal(t, "alice@example.com", cred.UserID)
	stored, err := env.creds.Get(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "at-login", stored.AccessToken)
	assert.Equal(t, "rt-login", stored.RefreshToken)
}

func TestCompleteLogin_ExchangeFailure(t *testing.T) {
	env := newCLIEnv(t)
	app, err := openApp(appOptions{})
	require.NoError(t, err)
	defer app.Close()

	ex := &stubExchanger{err: errors.New("invalid_grant")}
	_, err = completeLogin(context.Background(), app, ex, "bad")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchanging authorisation code")
	creds, err := env.creds.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, creds)
}

func TestAuthLogin_RequiresSecretWithoutTerminal(t *testing.T) {
	newCLIEnv(t)
	t.Setenv("HRWATCH_CLIENT_SECRET", "")
	prev := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	defer func() { stdinIsTerminal = prev }()

	_, err := execute("auth", "login", "--no-browser")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HRWATCH_CLIENT_SECRET")
}
