// Package toolkit derives toolkit-level enablement from tool-level preference
// flags. A toolkit is not a stored entity — it exists only as a grouping of
// registered tools, recomputed from registry and preference snapshots on each
// request so it can never drift from its sources.
package toolkit

import (
	"errors"
	"fmt"
)

// Status is the derived view of one toolkit under a scope. Enabled follows
// AND-aggregation: every tool in the toolkit must be enabled. Partial
// enablement reports the toolkit as disabled even though individual tools
// remain callable; a toolkit with zero tools is never enabled.
type Status struct {
	ToolkitName string `json:"toolkit_name"`
	ToolkitSlug string `json:"toolkit_slug"`
	ToolCount   int    `json:"tool_count"`
	Enabled     bool   `json:"is_enabled"`
}

// ToolkitWrite records the outcome of one toolkit's bulk preference write.
type ToolkitWrite struct {
	ToolkitName   string `json:"toolkit_name"`
	ToolsAffected int    `json:"tools_affected"`
}

// BulkResult aggregates a multi-toolkit write.
type BulkResult struct {
	TotalToolsAffected int            `json:"total_tools_affected"`
	PerToolkit         []ToolkitWrite `json:"per_toolkit"`
}

// ErrToolkitUnknown indicates the named toolkit has no registered tools.
var ErrToolkitUnknown = errors.New("toolkit has no registered tools")

// PartialResultError reports a multi-toolkit write that failed partway.
// Completed holds the toolkits whose writes committed before the failure;
// ToolkitName is the toolkit whose write failed. Each toolkit's write commits
// independently, so completed work is never rolled back or silently dropped.
type PartialResultError struct {
	Completed   BulkResult
	ToolkitName string
	Err         error
}

// Error implements the error interface.
func (e *PartialResultError) Error() string {
	return fmt.Sprintf("bulk toolkit write failed at %q after %d toolkits: %v",
		e.ToolkitName, len(e.Completed.PerToolkit), e.Err)
}

// Unwrap returns the underlying error.
func (e *PartialResultError) Unwrap() error { return e.Err }
