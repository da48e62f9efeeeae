package memory

import (
	"context"
	"iter"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// Ensure SampleStore implements the interfaces.
var (
	_ driven.SampleStore   = (*SampleStore)(nil)
	_ driven.BaselineStore = (*SampleStore)(nil)
)

// SampleStore is an in-memory implementation of driven.SampleStore and
// driven.BaselineStore. Each user's samples are kept sorted by ObservedAt.
type SampleStore struct {
	mu        sync.RWMutex
	samples   map[string][]domain.Sample
	baselines map[string]domain.Baseline
}

// NewSampleStore creates a new in-memory sample store.
func NewSampleStore() *SampleStore {
	return &SampleStore{
		samples:   make(map[string][]domain.Sample),
		baselines: make(map[string]domain.Baseline),
	}
}

// Append stores a sample unless one exists at the same instant.
func (s *SampleStore) Append(_ context.Context, sample domain.Sample) (bool, error) {
	if err := sample.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(sample), nil
}

// AppendEvaluated stores a sample and its resulting baseline together.
func (s *SampleStore) AppendEvaluated(_ context.Context, sample domain.Sample, next domain.Baseline) (bool, error) {
	if err := sample.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.insertLocked(sample) {
		return false, nil
	}
	s.baselines[next.UserID] = next
	return true, nil
}

func (s *SampleStore) insertLocked(sample domain.Sample) bool {
	list := s.samples[sample.UserID]
	i, found := slices.BinarySearchFunc(list, sample.ObservedAt, func(e domain.Sample, t time.Time) int {
		return e.ObservedAt.Compare(t)
	})
	if found {
		return false
	}
	s.samples[sample.UserID] = slices.Insert(list, i, sample)
	return true
}

// Last returns the newest sample for a user, or nil.
func (s *SampleStore) Last(_ context.Context, userID string) (*domain.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.samples[userID]
	if len(list) == 0 {
		return nil, nil
	}
	last := list[len(list)-1]
	return &last, nil
}

// Range yields samples in [from, to) in ascending order from a snapshot.
func (s *SampleStore) Range(_ context.Context, userID string, from, to time.Time) iter.Seq2[domain.Sample, error] {
	return func(yield func(domain.Sample, error) bool) {
		s.mu.RLock()
		list := s.samples[userID]
		lo := sort.Search(len(list), func(i int) bool { return !list[i].ObservedAt.Before(from) })
		hi := sort.Search(len(list), func(i int) bool { return !list[i].ObservedAt.Before(to) })
		var window []domain.Sample
		if lo < hi {
			window = slices.Clone(list[lo:hi])
		}
		s.mu.RUnlock()

		for _, sample := range window {
			if !yield(sample, nil) {
				return
			}
		}
	}
}

// Prune deletes samples observed before the cutoff.
func (s *SampleStore) Prune(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for userID, list := range s.samples {
		i := sort.Search(len(list), func(i int) bool { return !list[i].ObservedAt.Before(before) })
		removed += int64(i)
		if i == len(list) {
			delete(s.samples, userID)
			continue
		}
		s.samples[userID] = slices.Clone(list[i:])
	}
	return removed, nil
}

// GetBaseline returns a user's baseline, or nil.
func (s *SampleStore) GetBaseline(_ context.Context, userID string) (*domain.Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.baselines[userID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// PutBaseline creates or replaces a baseline.
func (s *SampleStore) PutBaseline(_ context.Context, b domain.Baseline) error {
	if b.UserID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baselines[b.UserID] = b
	return nil
}
