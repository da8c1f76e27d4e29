// Package authz decides whether a tool may be invoked right now. A tool is
// callable when its administrative flag is enabled in the requested scope and
// the owning toolkit has an ACTIVE connection for the user. The two gates are
// independent; a denial reports which one failed.
package authz

import (
	"context"
	"fmt"

	"github.com/arcline/toolgate/pkg/connection"
	"github.com/arcline/toolgate/pkg/preference"
	"github.com/arcline/toolgate/pkg/registry"
)

// ConnectionLister is the slice of the connection engine the facade needs.
type ConnectionLister interface {
	List(ctx context.Context, userID string) ([]connection.Connection, error)
}

// Decision is the outcome of an authorization check.
type Decision struct {
	ToolSlug    string `json:"tool_slug"`
	ToolkitSlug string `json:"toolkit_slug"`

	// Enabled reports the administrative flag in the checked scope.
	Enabled bool `json:"enabled"`

	// Connected reports whether the user holds an ACTIVE connection for the
	// tool's toolkit.
	Connected bool `json:"connected"`
}

// Callable reports whether both gates passed.
func (d Decision) Callable() bool {
	return d.Enabled && d.Connected
}

// Reason describes why a non-callable decision failed. Empty when callable.
func (d Decision) Reason() string {
	switch {
	case d.Callable():
		return ""
	case !d.Enabled:
		return fmt.Sprintf("tool %s is not enabled", d.ToolSlug)
	default:
		return fmt.Sprintf("toolkit %s is not connected", d.ToolkitSlug)
	}
}

// Facade evaluates both gates against the registry, the preference store,
// and the connection engine.
type Facade struct {
	tools registry.Store
	prefs preference.Store
	conns ConnectionLister
}

// NewFacade creates an authorization facade.
func NewFacade(tools registry.Store, prefs preference.Store, conns ConnectionLister) *Facade {
	return &Facade{tools: tools, prefs: prefs, conns: conns}
}

// Check evaluates a single tool. The scope is the agent when agentID is
// non-empty, the user otherwise; the two are never merged. Unknown tools
// fail with registry.ErrNotFound.
func (f *Facade) Check(ctx context.Context, userID, agentID, toolSlug string) (Decision, error) {
	tool, err := f.tools.Get(ctx, toolSlug)
	if err != nil {
		return Decision{}, fmt.Errorf("resolving tool %s: %w", toolSlug, err)
	}

	decision := Decision{ToolSlug: tool.Slug, ToolkitSlug: tool.ToolkitSlug}

	scope, scopeID := preference.ScopeUser, userID
	if agentID != "" {
		scope, scopeID = preference.ScopeAgent, agentID
	}
	prefs, err := f.prefs.List(ctx, scope, scopeID)
	if err != nil {
		return Decision{}, fmt.Errorf("listing %s preferences: %w", scope, err)
	}
	for _, p := range prefs {
		if p.ToolSlug == tool.Slug {
			decision.Enabled = p.Enabled
			break
		}
	}

	connected, err := f.connectedToolkits(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	decision.Connected = connected[tool.ToolkitSlug]

	return decision, nil
}

// CheckAll evaluates every registered tool in one pass, for surfaces that
// need the full callable set (tool listings). One preference read and one
// connection read cover all tools.
func (f *Facade) CheckAll(ctx context.Context, userID, agentID string) ([]Decision, error) {
	tools, err := f.tools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}

	scope, scopeID := preference.ScopeUser, userID
	if agentID != "" {
		scope, scopeID = preference.ScopeAgent, agentID
	}
	prefs, err := f.prefs.List(ctx, scope, scopeID)
	if err != nil {
		return nil, fmt.Errorf("listing %s preferences: %w", scope, err)
	}
	enabled := make(map[string]bool, len(prefs))
	for _, p := range prefs {
		enabled[p.ToolSlug] = p.Enabled
	}

	connected, err := f.connectedToolkits(ctx, userID)
	if err != nil {
		return nil, err
	}

	decisions := make([]Decision, 0, len(tools))
	for _, tool := range tools {
		decisions = append(decisions, Decision{
			ToolSlug:    tool.Slug,
			ToolkitSlug: tool.ToolkitSlug,
			Enabled:     enabled[tool.Slug],
			Connected:   connected[tool.ToolkitSlug],
		})
	}
	return decisions, nil
}

// connectedToolkits returns the set of toolkit slugs with an ACTIVE
// connection for the user. Computed per request; connection state lives with
// the provider and is never cached here.
func (f *Facade) connectedToolkits(ctx context.Context, userID string) (map[string]bool, error) {
	conns, err := f.conns.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	active := make(map[string]bool)
	for _, c := range conns {
		if c.Status == connection.StatusActive {
			active[c.ToolkitSlug] = true
		}
	}
	return active, nil
}
