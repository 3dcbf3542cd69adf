package memory

import (
	"context"
	"sync"

	"keygate/internal/mechanism/models"
	id "keygate/pkg/domain"
)

// Error Contract:
// All store methods follow this pattern:
// - Get returns (nil, nil) when no key exists for the principal
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// InMemoryKeyStore stores subscription keys in memory for tests/dev.
type InMemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[id.Address]models.SubscriptionKey
}

// New constructs an empty in-memory key store.
func New() *InMemoryKeyStore {
	return &InMemoryKeyStore{keys: make(map[id.Address]models.SubscriptionKey)}
}

func (s *InMemoryKeyStore) Get(_ context.Context, principal id.Address) (*models.SubscriptionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key, ok := s.keys[principal]; ok {
		copied := key
		return &copied, nil
	}
	return nil, nil
}

func (s *InMemoryKeyStore) Put(_ context.Context, key *models.SubscriptionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.Owner] = *key
	return nil
}

func (s *InMemoryKeyStore) Delete(_ context.Context, principal id.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, principal)
	return nil
}

func (s *InMemoryKeyStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.keys)), nil
}
