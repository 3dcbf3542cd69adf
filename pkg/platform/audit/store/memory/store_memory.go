package memory

import (
	"context"
	"sync"

	id "keygate/pkg/domain"
	audit "keygate/pkg/platform/audit"
)

// InMemoryStore keeps audit events in memory for tests and dev mode.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

// NewInMemoryStore constructs an empty in-memory audit store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append records an event.
func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByPrincipal returns all events whose subject is the given principal, in
// insertion order.
func (s *InMemoryStore) ListByPrincipal(_ context.Context, principal id.Address) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, e := range s.events {
		if e.Principal == principal {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every stored event in insertion order.
func (s *InMemoryStore) All(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}
