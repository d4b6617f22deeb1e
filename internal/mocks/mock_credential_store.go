package mocks

import (
	"sync"

	"github.com/you/scamwatch/domain"
)

// MockCredentialStore implements domain.CredentialStore interface for
// testing. Without overrides it behaves as an in-memory store, which
// covers the common save/load/clear choreography.
type MockCredentialStore struct {
	SaveFunc  func(snapshot *domain.SessionSnapshot) error
	LoadFunc  func() (*domain.SessionSnapshot, error)
	ClearFunc func() error

	mu       sync.Mutex
	snapshot *domain.SessionSnapshot
}

// NewMockCredentialStore creates a new MockCredentialStore with default behaviors
func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{}
}

// Save persists the snapshot
func (m *MockCredentialStore) Save(snapshot *domain.SessionSnapshot) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(snapshot)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *snapshot
	m.snapshot = &copied
	return nil
}

// Load returns the persisted snapshot
func (m *MockCredentialStore) Load() (*domain.SessionSnapshot, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	copied := *m.snapshot
	return &copied, nil
}

// Clear discards the persisted snapshot
func (m *MockCredentialStore) Clear() error {
	if m.ClearFunc != nil {
		return m.ClearFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = nil
	return nil
}

// Stored returns the currently held snapshot, for assertions.
func (m *MockCredentialStore) Stored() *domain.SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Compile-time interface compliance verification
var _ domain.CredentialStore = (*MockCredentialStore)(nil)
