package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arcline/toolgate/pkg/preference"
	"github.com/arcline/toolgate/pkg/toolkit"
)

// toolkitStatusResponse is one row of the toolkit listing.
type toolkitStatusResponse struct {
	ToolkitName string `json:"toolkit_name"`
	ToolkitSlug string `json:"toolkit_slug"`
	ToolCount   int    `json:"tool_count"`
	IsEnabled   bool   `json:"is_enabled"`
}

// listToolkits handles GET /api/v1/toolkits.
func (h *Handler) listToolkits(w http.ResponseWriter, r *http.Request) {
	uc, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	scope, scopeID, status, err := h.resolveScope(r, uc, q.Get("scope"), q.Get("scope_id"), false)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	statuses, err := h.deps.Toolkits.ListWithStatus(r.Context(), scope, scopeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]toolkitStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, toolkitStatusResponse{
			ToolkitName: s.ToolkitName,
			ToolkitSlug: s.ToolkitSlug,
			ToolCount:   s.ToolCount,
			IsEnabled:   s.Enabled,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// scopedEnableRequest is the body for toolkit enablement writes.
type scopedEnableRequest struct {
	Scope   string `json:"scope"`
	ScopeID string `json:"scope_id"`
	Enabled bool   `json:"enabled"`
}

// setToolkitEnabled handles POST /api/v1/toolkits/{name}/enabled.
func (h *Handler) setToolkitEnabled(w http.ResponseWriter, r *http.Request) {
	uc, ok := caller(w, r)
	if !ok {
		return
	}
	var req scopedEnableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	scope, scopeID, status, err := h.resolveScope(r, uc, req.Scope, req.ScopeID, true)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	affected, err := h.deps.Toolkits.SetEnabled(r.Context(), scope, scopeID, r.PathValue("name"), req.Enabled)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"tools_affected": affected})
}

// bulkResultResponse is the body for bulk toolkit writes.
type bulkResultResponse struct {
	TotalToolsAffected int                   `json:"total_tools_affected"`
	PerToolkit         []toolkitWriteSummary `json:"per_toolkit"`
	Error              string                `json:"error,omitempty"`
}

type toolkitWriteSummary struct {
	ToolkitName   string `json:"toolkit_name"`
	ToolsAffected int    `json:"tools_affected"`
}

func toBulkResponse(res toolkit.BulkResult) bulkResultResponse {
	out := bulkResultResponse{
		TotalToolsAffected: res.TotalToolsAffected,
		PerToolkit:         make([]toolkitWriteSummary, 0, len(res.PerToolkit)),
	}
	for _, wr := range res.PerToolkit {
		out.PerToolkit = append(out.PerToolkit, toolkitWriteSummary{
			ToolkitName:   wr.ToolkitName,
			ToolsAffected: wr.ToolsAffected,
		})
	}
	return out
}

// writeBulkResult maps a bulk outcome, including the partial-failure shape:
// a failed bulk write still reports which toolkits committed before the
// failure.
func writeBulkResult(w http.ResponseWriter, res toolkit.BulkResult, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, toBulkResponse(res))
		return
	}
	var partial *toolkit.PartialResultError
	if errors.As(err, &partial) {
		body := toBulkResponse(partial.Completed)
		body.Error = partial.Error()
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}
	writeDomainError(w, err)
}

// setAllToolkitsEnabled handles POST /api/v1/toolkits/enabled.
func (h *Handler) setAllToolkitsEnabled(w http.ResponseWriter, r *http.Request) {
	uc, ok := caller(w, r)
	if !ok {
		return
	}
	var req scopedEnableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	scope, scopeID, status, err := h.resolveScope(r, uc, req.Scope, req.ScopeID, true)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	res, err := h.deps.Toolkits.SetAllEnabled(r.Context(), scope, scopeID, req.Enabled)
	writeBulkResult(w, res, err)
}

// copyToolkitsRequest is the body for POST /agents/{id}/toolkits/copy.
type copyToolkitsRequest struct {
	ToolkitNames []string `json:"toolkit_names"`
}

// copyAgentToolkits handles POST /api/v1/agents/{id}/toolkits/copy. The copy
// is additive: it only enables, never clears what the agent already has.
func (h *Handler) copyAgentToolkits(w http.ResponseWriter, r *http.Request) {
	uc, ok := caller(w, r)
	if !ok {
		return
	}
	agentID := r.PathValue("id")
	var req copyToolkitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.ToolkitNames) == 0 {
		writeError(w, http.StatusBadRequest, "toolkit_names is required")
		return
	}
	if _, _, status, err := h.resolveScope(r, uc, string(preference.ScopeAgent), agentID, true); err != nil {
		writeError(w, status, err.Error())
		return
	}

	res, err := h.deps.Toolkits.CopySelection(r.Context(), agentID, req.ToolkitNames)
	writeBulkResult(w, res, err)
}
