// Package registry provides the available-tool registry: the canonical list
// of provider tools, each tagged with the toolkit it belongs to. The registry
// is the source of truth for which tools can ever be enabled; enablement and
// connection state live elsewhere.
package registry

import (
	"context"
	"errors"
)

// Tool is a single invocable capability belonging to one toolkit.
// The slug is provider-assigned, globally unique, and stable.
type Tool struct {
	Slug        string `json:"slug"`
	ToolkitSlug string `json:"toolkit_slug"`
	ToolkitName string `json:"toolkit_name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// FieldPatch holds optional metadata updates for a registered tool.
// Nil fields are left unchanged. The slug itself is immutable.
type FieldPatch struct {
	ToolkitSlug *string `json:"toolkit_slug,omitempty"`
	ToolkitName *string `json:"toolkit_name,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound indicates the tool slug is not registered.
	ErrNotFound = errors.New("tool not found")

	// ErrDuplicate indicates the tool slug is already registered.
	ErrDuplicate = errors.New("tool already registered")
)

// Store defines the interface for tool registry persistence.
type Store interface {
	// List returns all registered tools ordered by toolkit name then slug.
	List(ctx context.Context) ([]Tool, error)

	// Get retrieves a tool by slug. Returns ErrNotFound if absent.
	Get(ctx context.Context, slug string) (*Tool, error)

	// Add registers a new tool. Returns ErrDuplicate if the slug exists.
	Add(ctx context.Context, tool Tool) error

	// Update applies a partial metadata update. Returns ErrNotFound if absent.
	Update(ctx context.Context, slug string, patch FieldPatch) error

	// Delete removes a tool. Returns ErrNotFound if absent. Callers must
	// cascade preference removal for the slug (see preference.Store).
	Delete(ctx context.Context, slug string) error
}

// apply copies non-nil patch fields onto the tool.
func (p FieldPatch) apply(t *Tool) {
	if p.ToolkitSlug != nil {
		t.ToolkitSlug = *p.ToolkitSlug
	}
	if p.ToolkitName != nil {
		t.ToolkitName = *p.ToolkitName
	}
	if p.DisplayName != nil {
		t.DisplayName = *p.DisplayName
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
}
