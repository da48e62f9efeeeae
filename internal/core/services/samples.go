package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driving"
)

// Ensure SampleService implements the interface.
var _ driving.SampleService = (*SampleService)(nil)

// SampleService provides read access to stored heart-rate data.
type SampleService struct {
	repo *Repository
}

// NewSampleService creates a sample service.
func NewSampleService(repo *Repository) *SampleService {
	return &SampleService{repo: repo}
}

// Latest returns the most recent sample for a user.
func (s *SampleService) Latest(ctx context.Context, userID string) (*domain.Sample, error) {
	return s.repo.Samples().Last(ctx, userID)
}

// List returns up to limit samples in [from, to), oldest first.
func (s *SampleService) List(
	ctx context.Context,
	userID string,
	from, to time.Time,
	limit int,
) ([]domain.Sample, error) {
	var out []domain.Sample
	for sample, err := range s.repo.Samples().Range(ctx, userID, from, to) {
		if err != nil {
			return nil, fmt.Errorf("range samples: %w", err)
		}
		out = append(out, sample)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Baseline returns the user's baseline, or nil if not yet seeded.
func (s *SampleService) Baseline(ctx context.Context, userID string) (*domain.Baseline, error) {
	return s.repo.Baselines().GetBaseline(ctx, userID)
}

// History returns the user's most recent poll cycles.
func (s *SampleService) History(ctx context.Context, userID string, limit int) ([]domain.PollRecord, error) {
	return s.repo.PollStates().GetPollHistory(ctx, userID, limit)
}
