package services

import (
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockCredentialStore implements driven.CredentialStore for testing.
type mockCredentialStore struct {
	mu     sync.RWMutex
	creds  map[string]domain.Credential
	puts   int
	putErr error
	getErr error
}

func newMockCredentialStore(creds ...domain.Credential) *mockCredentialStore {
	m := &mockCredentialStore{creds: make(map[string]domain.Credential)}
	for _, c := range creds {
		m.creds[c.UserID] = c
	}
	return m
}

func (m *mockCredentialStore) Get(_ context.Context, userID string) (*domain.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.creds[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *mockCredentialStore) Put(_ context.Context, cred domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.creds[cred.UserID] = cred
	return nil
}

func (m *mockCredentialStore) Rotate(_ context.Context, cred domain.Credential, spent string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return false, m.putErr
	}
	current, ok := m.creds[cred.UserID]
	if !ok || current.RefreshToken != spent {
		return false, nil
	}
	m.puts++
	m.creds[cred.UserID] = cred
	return true, nil
}

func (m *mockCredentialStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, userID)
	return nil
}

func (m *mockCredentialStore) List(_ context.Context) ([]domain.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Credential, 0, len(m.creds))
	for _, c := range m.creds {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Credential) int {
		if a.UserID < b.UserID {
			return -1
		}
		if a.UserID > b.UserID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *mockCredentialStore) get(userID string) domain.Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds[userID]
}

// mockSampleStore implements driven.SampleStore and driven.BaselineStore.
type mockSampleStore struct {
	mu        sync.RWMutex
	samples   map[string][]domain.Sample
	baselines map[string]domain.Baseline
	appendErr error
	pruned    []time.Time
}

func newMockSampleStore() *mockSampleStore {
	return &mockSampleStore{
		samples:   make(map[string][]domain.Sample),
		baselines: make(map[string]domain.Baseline),
	}
}

func (m *mockSampleStore) Append(_ context.Context, sample domain.Sample) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(sample)
}

func (m *mockSampleStore) appendLocked(sample domain.Sample) (bool, error) {
	if m.appendErr != nil {
		return false, m.appendErr
	}
	for _, s := range m.samples[sample.UserID] {
		if s.ObservedAt.Equal(sample.ObservedAt) {
			return false, nil
		}
	}
	list := append(m.samples[sample.UserID], sample)
	slices.SortFunc(list, func(a, b domain.Sample) int { return a.ObservedAt.Compare(b.ObservedAt) })
	m.samples[sample.UserID] = list
	return true, nil
}

func (m *mockSampleStore) AppendEvaluated(_ context.Context, sample domain.Sample, next domain.Baseline) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok, err := m.appendLocked(sample)
	if err != nil || !ok {
		return ok, err
	}
	m.baselines[next.UserID] = next
	return true, nil
}

func (m *mockSampleStore) Last(_ context.Context, userID string) (*domain.Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.samples[userID]
	if len(list) == 0 {
		return nil, nil
	}
	s := list[len(list)-1]
	return &s, nil
}

func (m *mockSampleStore) Range(_ context.Context, userID string, from, to time.Time) iter.Seq2[domain.Sample, error] {
	return func(yield func(domain.Sample, error) bool) {
		m.mu.RLock()
		list := slices.Clone(m.samples[userID])
		m.mu.RUnlock()
		for _, s := range list {
			if s.ObservedAt.Before(from) || !s.ObservedAt.Before(to) {
				continue
			}
			if !yield(s, nil) {
				return
			}
		}
	}
}

func (m *mockSampleStore) Prune(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned = append(m.pruned, before)
	var n int64
	for user, list := range m.samples {
		kept := list[:0]
		for _, s := range list {
			if s.ObservedAt.Before(before) {
				n++
				continue
			}
			kept = append(kept, s)
		}
		m.samples[user] = kept
	}
	return n, nil
}

func (m *mockSampleStore) GetBaseline(_ context.Context, userID string) (*domain.Baseline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.baselines[userID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *mockSampleStore) PutBaseline(_ context.Context, b domain.Baseline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselines[b.UserID] = b
	return nil
}

func (m *mockSampleStore) count(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.samples[userID])
}

// mockPollStateStore implements driven.PollStateStore for testing.
type mockPollStateStore struct {
	mu      sync.RWMutex
	states  map[string]domain.PollState
	records map[string][]domain.PollRecord
	saveErr error
	pruned  int

	// afterGet runs after each GetPollState read, outside the lock.
	afterGet func(userID string)
}

func newMockPollStateStore() *mockPollStateStore {
	return &mockPollStateStore{
		states:  make(map[string]domain.PollState),
		records: make(map[string][]domain.PollRecord),
	}
}

func (m *mockPollStateStore) GetPollState(_ context.Context, userID string) (*domain.PollState, error) {
	m.mu.RLock()
	s, ok := m.states[userID]
	hook := m.afterGet
	m.mu.RUnlock()
	if hook != nil {
		hook(userID)
	}
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockPollStateStore) ListPollStates(_ context.Context) ([]domain.PollState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.PollState, 0, len(m.states))
	for _, s := range m.states {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockPollStateStore) SavePollState(_ context.Context, state *domain.PollState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[state.UserID] = *state
	return nil
}

func (m *mockPollStateStore) DeletePollState(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	delete(m.records, userID)
	return nil
}

func (m *mockPollStateStore) RecordPoll(_ context.Context, rec *domain.PollRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.UserID] = append(m.records[rec.UserID], *rec)
	return nil
}

func (m *mockPollStateStore) GetPollHistory(_ context.Context, userID string, limit int) ([]domain.PollRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := slices.Clone(m.records[userID])
	slices.Reverse(list)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *mockPollStateStore) PruneHistory(_ context.Context, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned++
	return nil
}

func (m *mockPollStateStore) state(userID string) domain.PollState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[userID]
}

// mockRefresher implements driven.TokenRefresher for testing.
type mockRefresher struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, refreshToken string) (domain.TokenGrant, error)
}

func (m *mockRefresher) Refresh(ctx context.Context, refreshToken string) (domain.TokenGrant, error) {
	m.mu.Lock()
	m.calls = append(m.calls, refreshToken)
	fn := m.fn
	m.mu.Unlock()
	if fn == nil {
		return domain.TokenGrant{}, domain.ErrRefreshRejected
	}
	return fn(ctx, refreshToken)
}

func (m *mockRefresher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockFetcher implements driven.SampleFetcher for testing.
type mockFetcher struct {
	mu     sync.Mutex
	tokens []string
	since  []time.Time
	fn     func(ctx context.Context, token string) ([]domain.Reading, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, token, _ string, since, _ time.Time) ([]domain.Reading, error) {
	m.mu.Lock()
	m.tokens = append(m.tokens, token)
	m.since = append(m.since, since)
	fn := m.fn
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, token)
}

func (m *mockFetcher) seenTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tokens)
}

// mockNotifier implements driven.Notifier for testing.
type mockNotifier struct {
	events chan domain.AnomalyEvent
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{events: make(chan domain.AnomalyEvent, 64)}
}

func (m *mockNotifier) Notify(_ context.Context, e domain.AnomalyEvent) error {
	m.events <- e
	return nil
}

// staticSettings implements driven.SettingsProvider for testing.
type staticSettings struct {
	polling domain.PollingConfig
	user    domain.UserSettings
}

func newStaticSettings() *staticSettings {
	return &staticSettings{
		polling: domain.DefaultPollingConfig(),
		user:    domain.DefaultUserSettings(),
	}
}

func (s *staticSettings) Polling() domain.PollingConfig         { return s.polling }
func (s *staticSettings) UserSettings(string) domain.UserSettings { return s.user }

// policyFunc adapts a function to driven.PollPolicy.
type policyFunc func(userID string, now time.Time) domain.PolicyDecision

func (f policyFunc) Decide(userID string, now time.Time) domain.PolicyDecision { return f(userID, now) }

var (
	_ driven.CredentialStore  = (*mockCredentialStore)(nil)
	_ driven.SampleStore      = (*mockSampleStore)(nil)
	_ driven.BaselineStore    = (*mockSampleStore)(nil)
	_ driven.PollStateStore   = (*mockPollStateStore)(nil)
	_ driven.TokenRefresher   = (*mockRefresher)(nil)
	_ driven.SampleFetcher    = (*mockFetcher)(nil)
	_ driven.Notifier         = (*mockNotifier)(nil)
	_ driven.SettingsProvider = (*staticSettings)(nil)
	_ driven.PollPolicy       = policyFunc(nil)
)
