package preference

import (
	"context"
	"sort"
	"sync"
)

// scopeKey identifies one scope owner's preference map.
type scopeKey struct {
	scope   Scope
	scopeID string
}

// MemoryStore implements Store using in-memory maps.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[scopeKey]map[string]bool
}

// NewMemoryStore creates a new in-memory preference store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[scopeKey]map[string]bool)}
}

// List returns all preference rows for a scope owner ordered by tool slug.
func (s *MemoryStore) List(_ context.Context, scope Scope, scopeID string) ([]Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.prefs[scopeKey{scope, scopeID}]
	result := make([]Preference, 0, len(rows))
	for slug, enabled := range rows {
		result = append(result, Preference{ScopeID: scopeID, ToolSlug: slug, Enabled: enabled})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ToolSlug < result[j].ToolSlug })
	return result, nil
}

// Set upserts a single preference row.
func (s *MemoryStore) Set(_ context.Context, scope Scope, scopeID, toolSlug string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsert(scope, scopeID, toolSlug, enabled)
	return nil
}

// SetMany upserts rows for every slug. The map mutation cannot fail partway,
// so the call is trivially atomic.
func (s *MemoryStore) SetMany(_ context.Context, scope Scope, scopeID string, toolSlugs []string, enabled bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slug := range toolSlugs {
		s.upsert(scope, scopeID, slug, enabled)
	}
	return len(toolSlugs), nil
}

// DeleteForTool removes every row referencing the slug in both scopes.
func (s *MemoryStore) DeleteForTool(_ context.Context, toolSlug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, rows := range s.prefs {
		delete(rows, toolSlug)
		if len(rows) == 0 {
			delete(s.prefs, key)
		}
	}
	return nil
}

// upsert writes one row. Caller holds the lock.
func (s *MemoryStore) upsert(scope Scope, scopeID, toolSlug string, enabled bool) {
	key := scopeKey{scope, scopeID}
	rows, ok := s.prefs[key]
	if !ok {
		rows = make(map[string]bool)
		s.prefs[key] = rows
	}
	rows[toolSlug] = enabled
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
