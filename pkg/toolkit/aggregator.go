package toolkit

import (
	"context"
	"fmt"

	"github.com/arcline/toolgate/pkg/preference"
	"github.com/arcline/toolgate/pkg/registry"
)

// Aggregator computes toolkit-level status and applies toolkit-level writes
// over the tool registry and a preference store.
type Aggregator struct {
	tools registry.Store
	prefs preference.Store
}

// NewAggregator creates a new toolkit aggregator.
func NewAggregator(tools registry.Store, prefs preference.Store) *Aggregator {
	return &Aggregator{tools: tools, prefs: prefs}
}

// ListWithStatus returns every known toolkit with its tool count and derived
// enabled flag under the given scope, ordered by toolkit name.
func (a *Aggregator) ListWithStatus(ctx context.Context, scope preference.Scope, scopeID string) ([]Status, error) {
	tools, err := a.tools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing registry tools: %w", err)
	}

	enabled, err := a.enabledSet(ctx, scope, scopeID)
	if err != nil {
		return nil, err
	}

	// Registry ordering is toolkit name then slug, so grouping in sequence
	// preserves name order.
	var statuses []Status
	for _, t := range tools {
		if len(statuses) == 0 || statuses[len(statuses)-1].ToolkitName != t.ToolkitName {
			statuses = append(statuses, Status{
				ToolkitName: t.ToolkitName,
				ToolkitSlug: t.ToolkitSlug,
				Enabled:     true,
			})
		}
		cur := &statuses[len(statuses)-1]
		cur.ToolCount++
		if !enabled[t.Slug] {
			cur.Enabled = false
		}
	}
	if statuses == nil {
		statuses = []Status{}
	}
	return statuses, nil
}

// SetEnabled sets every tool under the named toolkit to enabled/disabled in
// one bulk write and returns the number of tools affected.
func (a *Aggregator) SetEnabled(ctx context.Context, scope preference.Scope, scopeID, toolkitName string, enabled bool) (int, error) {
	slugs, err := a.toolkitSlugs(ctx, toolkitName)
	if err != nil {
		return 0, err
	}

	n, err := a.prefs.SetMany(ctx, scope, scopeID, slugs, enabled)
	if err != nil {
		return n, fmt.Errorf("writing toolkit %q preferences: %w", toolkitName, err)
	}
	return n, nil
}

// SetAllEnabled applies SetEnabled to every known toolkit in name order. Each
// toolkit's write commits independently; a failure partway short-circuits and
// returns a *PartialResultError carrying the toolkits completed so far.
func (a *Aggregator) SetAllEnabled(ctx context.Context, scope preference.Scope, scopeID string, enabled bool) (BulkResult, error) {
	names, err := a.toolkitNames(ctx)
	if err != nil {
		return BulkResult{}, err
	}
	return a.setEach(ctx, scope, scopeID, names, enabled)
}

// CopySelection enables the named toolkits for an agent. The copy is
// additive-only: toolkits absent from the list are left untouched, never
// disabled.
func (a *Aggregator) CopySelection(ctx context.Context, agentID string, toolkitNames []string) (BulkResult, error) {
	return a.setEach(ctx, preference.ScopeAgent, agentID, toolkitNames, true)
}

// setEach applies SetEnabled per toolkit, short-circuiting on failure.
func (a *Aggregator) setEach(ctx context.Context, scope preference.Scope, scopeID string, names []string, enabled bool) (BulkResult, error) {
	result := BulkResult{PerToolkit: []ToolkitWrite{}}
	for _, name := range names {
		n, err := a.SetEnabled(ctx, scope, scopeID, name, enabled)
		if err != nil {
			return result, &PartialResultError{Completed: result, ToolkitName: name, Err: err}
		}
		result.PerToolkit = append(result.PerToolkit, ToolkitWrite{ToolkitName: name, ToolsAffected: n})
		result.TotalToolsAffected += n
	}
	return result, nil
}

// toolkitSlugs resolves every tool slug under a toolkit name.
func (a *Aggregator) toolkitSlugs(ctx context.Context, toolkitName string) ([]string, error) {
	tools, err := a.tools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing registry tools: %w", err)
	}

	var slugs []string
	for _, t := range tools {
		if t.ToolkitName == toolkitName {
			slugs = append(slugs, t.Slug)
		}
	}
	if len(slugs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrToolkitUnknown, toolkitName)
	}
	return slugs, nil
}

// toolkitNames returns the distinct toolkit names in registry order.
func (a *Aggregator) toolkitNames(ctx context.Context) ([]string, error) {
	tools, err := a.tools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing registry tools: %w", err)
	}

	var names []string
	for _, t := range tools {
		if len(names) == 0 || names[len(names)-1] != t.ToolkitName {
			names = append(names, t.ToolkitName)
		}
	}
	return names, nil
}

// enabledSet loads the scope's preferences into a slug set of enabled tools.
func (a *Aggregator) enabledSet(ctx context.Context, scope preference.Scope, scopeID string) (map[string]bool, error) {
	prefs, err := a.prefs.List(ctx, scope, scopeID)
	if err != nil {
		return nil, fmt.Errorf("listing %s preferences: %w", scope, err)
	}

	enabled := make(map[string]bool, len(prefs))
	for _, p := range prefs {
		enabled[p.ToolSlug] = p.Enabled
	}
	return enabled, nil
}
