// Package oauth implements the vendor's OAuth 2.0 authorization-code and
// refresh-token grants on top of golang.org/x/oauth2.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// Oura endpoints and the scopes hrwatch asks for.
const (
	DefaultAuthURL  = "https://cloud.ouraring.com/oauth/authorize"
	DefaultTokenURL = "https://api.ouraring.com/oauth/token"
	DefaultScopes   = "email personal heartrate"
)

// DefaultTimeout bounds a single token request.
const DefaultTimeout = 30 * time.Second

// Config holds the client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
}

// Client performs token grants against the authorization server.
type Client struct {
	cfg        *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

// Ensure Client implements the TokenRefresher interface.
var _ driven.TokenRefresher = (*Client)(nil)

// NewClient creates a client. A nil httpClient uses one with DefaultTimeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
		},
		httpClient: httpClient,
		now:        time.Now,
	}
}

// WithRedirectURL returns a copy of the client using redirectURL.
// The local callback server only knows its port once it is listening.
func (c *Client) WithRedirectURL(redirectURL string) *Client {
	cfg := *c.cfg
	cfg.RedirectURL = redirectURL
	return &Client{cfg: &cfg, httpClient: c.httpClient, now: c.now}
}

// AuthCodeURL returns the consent page URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	return c.cfg.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token grant.
func (c *Client) Exchange(ctx context.Context, code string) (domain.TokenGrant, error) {
	if code == "" {
		return domain.TokenGrant{}, fmt.Errorf("%w: empty authorization code", domain.ErrInvalidInput)
	}

	tok, err := c.cfg.Exchange(c.context(ctx), code)
	if err != nil {
		return domain.TokenGrant{}, classify("exchange code", err)
	}
	return c.grant(tok), nil
}

// Refresh performs the refresh-token grant. A rejected grant wraps
// domain.ErrRefreshRejected; network and server failures wrap
// domain.ErrTransient.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.TokenGrant, error) {
	if refreshToken == "" {
		return domain.TokenGrant{}, fmt.Errorf("%w: no refresh token", domain.ErrRefreshRejected)
	}

	// An empty access token forces the source to run the grant.
	src := c.cfg.TokenSource(c.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return domain.TokenGrant{}, classify("refresh token", err)
	}
	return c.grant(tok), nil
}

func (c *Client) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *Client) grant(tok *oauth2.Token) domain.TokenGrant {
	g := domain.TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	switch {
	case tok.ExpiresIn > 0:
		g.ExpiresIn = time.Duration(tok.ExpiresIn) * time.Second
	case !tok.Expiry.IsZero():
		g.ExpiresIn = tok.Expiry.Sub(c.now()).Round(time.Second)
	}
	return g
}

// classify maps a token endpoint failure onto the domain errors.
// 4xx responses other than 429 mean the grant itself was refused.
func classify(op string, err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		code := rerr.Response.StatusCode
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return fmt.Errorf("%s: %w: %w", op, domain.ErrRefreshRejected, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
}
