package registry

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store using an in-memory map.
type MemoryStore struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewMemoryStore creates a new in-memory tool registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tools: make(map[string]Tool)}
}

// List returns all registered tools ordered by toolkit name then slug.
func (s *MemoryStore) List(_ context.Context) ([]Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ToolkitName != result[j].ToolkitName {
			return result[i].ToolkitName < result[j].ToolkitName
		}
		return result[i].Slug < result[j].Slug
	})
	return result, nil
}

// Get retrieves a tool by slug.
func (s *MemoryStore) Get(_ context.Context, slug string) (*Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tools[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

// Add registers a new tool.
func (s *MemoryStore) Add(_ context.Context, tool Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tools[tool.Slug]; exists {
		return ErrDuplicate
	}
	s.tools[tool.Slug] = tool
	return nil
}

// Update applies a partial metadata update.
func (s *MemoryStore) Update(_ context.Context, slug string, patch FieldPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tools[slug]
	if !ok {
		return ErrNotFound
	}
	patch.apply(&t)
	s.tools[slug] = t
	return nil
}

// Delete removes a tool.
func (s *MemoryStore) Delete(_ context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tools[slug]; !ok {
		return ErrNotFound
	}
	delete(s.tools, slug)
	return nil
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
