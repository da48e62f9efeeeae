package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore is an in-memory implementation of driven.CredentialStore.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]domain.Credential
}

// NewCredentialStore creates a new in-memory credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		creds: make(map[string]domain.Credential),
	}
}

// Get retrieves a user's credential.
func (s *CredentialStore) Get(_ context.Context, userID string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cred, nil
}

// Put creates or replaces a user's credential.
func (s *CredentialStore) Put(_ context.Context, cred domain.Credential) error {
	if cred.UserID == "" {
		return fmt.Errorf("%w: empty user id", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.UserID] = cred
	return nil
}

// Rotate replaces the credential only while its refresh token is spent.
func (s *CredentialStore) Rotate(_ context.Context, cred domain.Credential, spent string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.creds[cred.UserID]
	if !ok || current.RefreshToken == "" || current.RefreshToken != spent {
		return false, nil
	}
	cred.CreatedAt = current.CreatedAt
	s.creds[cred.UserID] = cred
	return true, nil
}

// Delete removes a user's credential.
func (s *CredentialStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, userID)
	return nil
}

// List returns all credentials ordered by user id.
func (s *CredentialStore) List(_ context.Context) ([]domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds := make([]domain.Credential, 0, len(s.creds))
	for _, c := range s.creds {
		creds = append(creds, c)
	}
	slices.SortFunc(creds, func(a, b domain.Credential) int {
		return strings.Compare(a.UserID, b.UserID)
	})
	return creds, nil
}
