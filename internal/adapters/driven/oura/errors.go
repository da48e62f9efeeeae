package oura

import (
	"fmt"
	"net/http"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// APIError represents a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("oura: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap maps the status code onto the domain classification.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return domain.ErrAuth
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return domain.ErrTransient
	default:
		return domain.ErrPermanent
	}
}
