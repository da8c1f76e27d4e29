// Package preference provides per-scope tool enablement storage. A preference
// row records an explicit opt-in (or opt-out) of a single tool for one scope
// owner: a user, or one of a user's agents. Absence of a row means disabled —
// enablement is closed-world, not inherited.
package preference

import (
	"context"
	"fmt"
)

// Scope selects which enablement context a preference belongs to.
type Scope string

const (
	// ScopeUser is the default enablement context for an account.
	ScopeUser Scope = "user"

	// ScopeAgent is the enablement context for one named assistant persona.
	// Agent preferences are fully independent of the owning user's; copying
	// user preferences onto an agent is an explicit bulk write, never a
	// live binding.
	ScopeAgent Scope = "agent"
)

// ParseScope validates a scope string.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeUser, ScopeAgent:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// Preference is one (scope owner, tool) enablement flag.
type Preference struct {
	ScopeID  string `json:"scope_id"`
	ToolSlug string `json:"tool_slug"`
	Enabled  bool   `json:"enabled"`
}

// PartialWriteError reports a bulk write that may have applied some rows
// before failing. Written is the number of rows known to have been applied.
type PartialWriteError struct {
	Written int
	Err     error
}

// Error implements the error interface.
func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("bulk preference write failed after %d rows: %v", e.Written, e.Err)
}

// Unwrap returns the underlying error.
func (e *PartialWriteError) Unwrap() error { return e.Err }

// Store defines the interface for preference persistence. One implementation
// serves both scopes; the Scope parameter selects the backing record type.
type Store interface {
	// List returns all preference rows for a scope owner ordered by tool slug.
	List(ctx context.Context, scope Scope, scopeID string) ([]Preference, error)

	// Set upserts a single preference row. Toggling a never-toggled tool is
	// not an error; re-toggling overwrites (last write wins).
	Set(ctx context.Context, scope Scope, scopeID, toolSlug string, enabled bool) error

	// SetMany upserts rows for every slug in one atomic call and returns the
	// number of rows written. A failed call either applies nothing or reports
	// partial application via *PartialWriteError.
	SetMany(ctx context.Context, scope Scope, scopeID string, toolSlugs []string, enabled bool) (int, error)

	// DeleteForTool removes every row referencing the slug in both scopes.
	// Used when a tool is unregistered so no orphan preference remains.
	DeleteForTool(ctx context.Context, toolSlug string) error
}
