package oura

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.ouraring.com"

	// DefaultTimeout is the HTTP client timeout when none is supplied.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 1024
)

// Config configures a Client.
type Config struct {
	// BaseURL overrides DefaultBaseURL (tests, proxies).
	BaseURL string
	// RateBudget is the request budget per minute; zero is unlimited.
	RateBudget float64
}

// Client is an authenticated-per-call API client. Access tokens are passed
// on each request so one Client serves every user.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a client. A nil httpClient uses one with DefaultTimeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:     base,
		httpClient:  httpClient,
		rateLimiter: NewRateLimiter(cfg.RateBudget),
	}
}

// RateLimiter returns the shared limiter.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// get issues an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, accessToken, path string, query url.Values, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", domain.ErrTransient, err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", domain.ErrPermanent, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request %s: %w", domain.ErrTransient, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusTooManyRequests {
			c.rateLimiter.RecordRateLimit(parseRetryAfter(resp.Header.Get("Retry-After")))
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			URL:        path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrPermanent, path, err)
	}
	return nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}
