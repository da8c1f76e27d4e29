// Package agent provides the agent entity: a named assistant persona owned by
// exactly one user, carrying its own independent tool enablement state.
package agent

import (
	"context"
	"errors"
	"time"
)

// Agent is an assistant persona. A global agent is readable by every user but
// owned by nobody, so mutation of it is rejected for all callers.
type Agent struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsGlobal    bool      `json:"is_global"`
	CreatedAt   time.Time `json:"created_at"`
}

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound indicates the agent does not exist.
	ErrNotFound = errors.New("agent not found")
)

// MutableBy reports whether userID may mutate this agent or its preferences.
// Ownership is checked on every mutating call; a stale answer must never be
// cached across requests.
func (a *Agent) MutableBy(userID string) bool {
	if a.IsGlobal {
		return false
	}
	return a.OwnerID != "" && a.OwnerID == userID
}

// ReadableBy reports whether userID may read this agent.
func (a *Agent) ReadableBy(userID string) bool {
	return a.IsGlobal || a.OwnerID == userID
}

// Store defines the interface for agent persistence.
type Store interface {
	// Create persists a new agent.
	Create(ctx context.Context, a *Agent) error

	// Get retrieves an agent by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Agent, error)

	// ListForUser returns the user's own agents plus all global agents,
	// ordered by name.
	ListForUser(ctx context.Context, userID string) ([]Agent, error)

	// Delete removes an agent. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}
