package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// DefaultWebhookTimeout bounds one delivery when no client is supplied.
const DefaultWebhookTimeout = 10 * time.Second

// Ensure WebhookNotifier implements the Notifier interface.
var _ driven.Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier POSTs each event as JSON.
type WebhookNotifier struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewWebhookNotifier creates a webhook notifier. A non-empty token is sent
// as a bearer Authorization header.
func NewWebhookNotifier(url, token string, httpClient *http.Client) *WebhookNotifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultWebhookTimeout}
	}
	return &WebhookNotifier{url: url, token: token, httpClient: httpClient}
}

// Notify delivers the event. Any non-2xx response is an error.
func (n *WebhookNotifier) Notify(ctx context.Context, e domain.AnomalyEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hrwatch-Event", e.ID)
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
