package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

// SampleFetcher reads heart-rate measurements from the vendor API.
//
// Errors are classified by wrapping one of domain.ErrTransient,
// domain.ErrAuth or domain.ErrPermanent.
type SampleFetcher interface {
	// Fetch returns readings observed in [since, until) for the account
	// behind accessToken. userID is used for logging and rate accounting.
	Fetch(ctx context.Context, accessToken, userID string, since, until time.Time) ([]domain.Reading, error)
}
