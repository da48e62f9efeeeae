package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hrwatch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hrwatch/internal/adapters/driven/oauth"
	callback "github.com/custodia-labs/hrwatch/internal/adapters/driving/oauth"
	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authorised users",
	Long: `Authorise users with the vendor, list them, refresh their tokens and
remove them.

A user is identified by the email address of their vendor account. Logging
in again as an existing user replaces the stored tokens and lifts a
"needs re-auth" suspension.

Examples:
  hrwatch auth login
  hrwatch auth list
  hrwatch auth refresh alice@example.com
  hrwatch auth logout alice@example.com`,
}

var authLoginNoBrowser bool

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorise a user in the browser",
	Long: fmt.Sprintf(`Starts a local callback listener, opens the vendor's consent page and
stores the resulting tokens. The login link is valid for %s.

The OAuth client comes from [oauth] in the config file or the %s and
%s environment variables. When the secret is missing and stdin is a
terminal it is prompted for.`, callback.StateTTL, file.EnvClientID, file.EnvClientSecret),
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List authorised users",
	Args:  cobra.NoArgs,
	RunE:  runAuthList,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout <user>",
	Short: "Remove a user's tokens and scheduling state",
	Long: `Deletes the user's credential and poll state. Stored samples and the
baseline are kept so a later login continues the same history.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthLogout,
}

var authRefreshCmd = &cobra.Command{
	Use:   "refresh <user>",
	Short: "Refresh a user's access token now",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthRefresh,
}

func init() {
	authLoginCmd.Flags().BoolVar(&authLoginNoBrowser, "no-browser", false, "print the login URL instead of opening it")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authRefreshCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	app, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config.Config()
	if cfg.OAuth.ClientID == "" {
		return fmt.Errorf("no OAuth client configured: set [oauth] client_id in %s or %s",
			app.Config.Path(), file.EnvClientID)
	}
	client := app.OAuth
	if cfg.OAuth.ClientSecret == "" {
		if !stdinIsTerminal() {
			return fmt.Errorf("no OAuth client secret configured: set %s", file.EnvClientSecret)
		}
		cmd.Print("Client secret: ")
		cfg.OAuth.ClientSecret = readSecret(cmd.InOrStdin())
		cmd.Println()
		client = oauth.NewClient(oauthConfig(cfg), nil)
	}

	ctx := cmd.Context()
	state := callback.NewState()
	server := callback.NewCallbackServer(cfg.OAuth.RedirectPort, state)
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting callback listener: %w", err)
	}
	defer server.Stop()

	client = client.WithRedirectURL(server.RedirectURI())
	authURL := client.AuthCodeURL(state)
	cmd.Printf("Open this URL to authorise hrwatch:\n\n  %s\n\n", authURL)
	if !authLoginNoBrowser {
		if err := callback.OpenBrowser(authURL); err != nil {
			cmd.Printf("Could not open a browser (%v); open the URL manually.\n", err)
		}
	}
	cmd.Println("Waiting for authorisation...")

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return err
	}
	cred, err := completeLogin(ctx, app, client, code)
	if err != nil {
		return err
	}

	cmd.Printf("Authorised %s (access token valid until %s).\n",
		cred.UserID, cred.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

// exchanger is the part of the OAuth client used to finish a login.
type exchanger interface {
	Exchange(ctx context.Context, code string) (domain.TokenGrant, error)
}

// completeLogin trades the code for tokens, resolves the account's email
// and stores the credential under it.
func completeLogin(ctx context.Context, app *App, client exchanger, code string) (*domain.Credential, error) {
	grant, err := client.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorisation code: %w", err)
	}
	info, err := app.API.PersonalInfo(ctx, grant.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("reading account identity: %w", err)
	}
	return app.Credentials.Authorize(ctx, info.Email, grant)
}

func runAuthList(cmd *cobra.Command, _ []string) error {
	app, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	creds, err := app.Credentials.List(ctx)
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		cmd.Println("No authorised users. Run 'hrwatch auth login' to add one.")
		return nil
	}

	now := time.Now()
	cmd.Printf("%-32s %-20s %-14s %s\n", "USER", "TOKEN EXPIRES", "STATUS", "SINCE")
	for _, c := range creds {
		state, err := app.Repo.PollState(ctx, c.UserID)
		if err != nil {
			return err
		}
		status := "active"
		if state.Suspended() {
			status = string(state.Suspension)
		}
		expires := c.ExpiresAt.Local().Format("2006-01-02 15:04")
		if !c.ExpiresAt.After(now) {
			expires = "expired"
		}
		cmd.Printf("%-32s %-20s %-14s %s\n", c.UserID, expires, status, c.CreatedAt.Local().Format("2006-01-02"))
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	app, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	userID := args[0]
	if err := app.Credentials.Deauthorize(cmd.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user %s is not authorised", userID)
		}
		return err
	}
	cmd.Printf("Logged out %s. Stored samples were kept.\n", userID)
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	app, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	userID := args[0]
	if _, err := app.Tokens.ForceRefresh(ctx, userID); err != nil {
		if domain.NeedsReauth(err) {
			return fmt.Errorf("refresh for %s failed, run 'hrwatch auth login' again: %w", userID, err)
		}
		return err
	}
	cred, err := app.Credentials.Get(ctx, userID)
	if err != nil {
		return err
	}
	cmd.Printf("Refreshed %s (access token valid until %s).\n",
		userID, cred.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}
