package oura

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

const heartRatePath = "/v2/usercollection/heartrate"

// maxPages bounds pagination in case the server keeps returning a cursor.
const maxPages = 100

// Ensure Client implements the SampleFetcher interface.
var _ driven.SampleFetcher = (*Client)(nil)

type heartRateItem struct {
	BPM       int    `json:"bpm"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

type heartRatePage struct {
	Data      []heartRateItem `json:"data"`
	NextToken *string         `json:"next_token"`
}

// Fetch returns every reading in [since, until), following next_token.
// Readings are returned as delivered; filtering is left to the caller.
func (c *Client) Fetch(ctx context.Context, accessToken, _ string, since, until time.Time) ([]domain.Reading, error) {
	query := url.Values{}
	query.Set("start_datetime", since.UTC().Format(time.RFC3339))
	query.Set("end_datetime", until.UTC().Format(time.RFC3339))

	var readings []domain.Reading
	for page := 0; page < maxPages; page++ {
		var resp heartRatePage
		if err := c.get(ctx, accessToken, heartRatePath, query, &resp); err != nil {
			return nil, err
		}

		for _, item := range resp.Data {
			observed, err := time.Parse(time.RFC3339, item.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("%w: reading timestamp %q: %w", domain.ErrPermanent, item.Timestamp, err)
			}
			readings = append(readings, domain.Reading{
				BPM:        item.BPM,
				ObservedAt: observed.UTC(),
				Source:     item.Source,
			})
		}

		if resp.NextToken == nil || *resp.NextToken == "" {
			return readings, nil
		}
		query.Set("next_token", *resp.NextToken)
	}

	return nil, fmt.Errorf("%w: heart rate pagination exceeded %d pages", domain.ErrTransient, maxPages)
}
