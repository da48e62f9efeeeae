package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// Ensure PollStateStore implements the interface.
var _ driven.PollStateStore = (*PollStateStore)(nil)

// PollStateStore is an in-memory implementation of driven.PollStateStore.
type PollStateStore struct {
	mu      sync.RWMutex
	states  map[string]domain.PollState
	history map[string][]domain.PollRecord // oldest first
}

// NewPollStateStore creates a new in-memory poll state store.
func NewPollStateStore() *PollStateStore {
	return &PollStateStore{
		states:  make(map[string]domain.PollState),
		history: make(map[string][]domain.PollRecord),
	}
}

// GetPollState returns nil and no error for users never polled.
func (s *PollStateStore) GetPollState(_ context.Context, userID string) (*domain.PollState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[userID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// ListPollStates returns all poll states ordered by user id.
func (s *PollStateStore) ListPollStates(_ context.Context) ([]domain.PollState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]domain.PollState, 0, len(s.states))
	for _, st := range s.states {
		states = append(states, st)
	}
	slices.SortFunc(states, func(a, b domain.PollState) int {
		return strings.Compare(a.UserID, b.UserID)
	})
	return states, nil
}

// SavePollState stores or updates a poll state.
func (s *PollStateStore) SavePollState(_ context.Context, state *domain.PollState) error {
	if state == nil || state.UserID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.UserID] = *state
	return nil
}

// DeletePollState removes a user's state and history.
func (s *PollStateStore) DeletePollState(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	delete(s.history, userID)
	return nil
}

// RecordPoll appends a history record.
func (s *PollStateStore) RecordPoll(_ context.Context, rec *domain.PollRecord) error {
	if rec == nil || rec.UserID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[rec.UserID] = append(s.history[rec.UserID], *rec)
	return nil
}

// GetPollHistory returns up to limit records, most recent first.
// A non-positive limit returns everything.
func (s *PollStateStore) GetPollHistory(_ context.Context, userID string, limit int) ([]domain.PollRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := slices.Clone(s.history[userID])
	slices.Reverse(list)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// PruneHistory keeps the most recent keep records per user.
func (s *PollStateStore) PruneHistory(_ context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, list := range s.history {
		if len(list) > keep {
			s.history[userID] = slices.Clone(list[len(list)-keep:])
		}
	}
	return nil
}
