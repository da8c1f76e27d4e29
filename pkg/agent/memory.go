package agent

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store using an in-memory map.
type MemoryStore struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewMemoryStore creates a new in-memory agent store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{agents: make(map[string]Agent)}
}

// Create persists a new agent.
func (s *MemoryStore) Create(_ context.Context, a *Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.agents[a.ID] = *a
	return nil
}

// Get retrieves an agent by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// ListForUser returns the user's own agents plus all global agents.
func (s *MemoryStore) ListForUser(_ context.Context, userID string) ([]Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Agent, 0)
	for _, a := range s.agents {
		if a.IsGlobal || a.OwnerID == userID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Delete removes an agent.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[id]; !ok {
		return ErrNotFound
	}
	delete(s.agents, id)
	return nil
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
