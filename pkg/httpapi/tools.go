package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arcline/toolgate/pkg/registry"
)

// toolResponse is one row of the per-tool listing: registry metadata joined
// with the scope's enablement flag.
type toolResponse struct {
	Slug        string `json:"slug"`
	ToolkitSlug string `json:"toolkit_slug"`
	ToolkitName string `json:"toolkit_name"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	IsEnabled   bool   `json:"is_enabled"`
}

// listTools handles GET /api/v1/tools.
func (h *Handler) listTools(w http.ResponseWriter, r *http.Request) {
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

	tools, err := h.deps.Tools.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	prefs, err := h.deps.Prefs.List(r.Context(), scope, scopeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	enabled := make(map[string]bool, len(prefs))
	for _, p := range prefs {
		enabled[p.ToolSlug] = p.Enabled
	}

	out := make([]toolResponse, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolResponse{
			Slug:        t.Slug,
			ToolkitSlug: t.ToolkitSlug,
			ToolkitName: t.ToolkitName,
			DisplayName: t.DisplayName,
			Description: t.Description,
			IsEnabled:   enabled[t.Slug],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// toolPreferenceEntry is one entry of a bulk preference write.
type toolPreferenceEntry struct {
	Slug    string `json:"slug"`
	Enabled bool   `json:"enabled"`
}

// bulkPreferencesRequest is the body for PUT /api/v1/tools/preferences.
type bulkPreferencesRequest struct {
	Scope   string                `json:"scope"`
	ScopeID string                `json:"scope_id"`
	Tools   []toolPreferenceEntry `json:"tools"`
}

// skippedEntry reports an entry the bulk write refused, with the reason.
type skippedEntry struct {
	Slug   string `json:"slug"`
	Reason string `json:"reason"`
}

// bulkPreferencesResponse is the body for PUT /api/v1/tools/preferences.
type bulkPreferencesResponse struct {
	Updated int            `json:"updated"`
	Skipped []skippedEntry `json:"skipped"`
}

// bulkSetPreferences handles PUT /api/v1/tools/preferences. Invalid entries
// (empty slug, unknown tool) are skipped and reported, never silently
// dropped; valid entries are still applied.
func (h *Handler) bulkSetPreferences(w http.ResponseWriter, r *http.Request) {
	uc, ok := caller(w, r)
	if !ok {
		return
	}
	var req bulkPreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Tools) == 0 {
		writeError(w, http.StatusBadRequest, "tools is required")
		return
	}
	scope, scopeID, status, err := h.resolveScope(r, uc, req.Scope, req.ScopeID, true)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	resp := bulkPreferencesResponse{Skipped: []skippedEntry{}}
	for _, entry := range req.Tools {
		if entry.Slug == "" {
			resp.Skipped = append(resp.Skipped, skippedEntry{Reason: "empty slug"})
			continue
		}
		if _, err := h.deps.Tools.Get(r.Context(), entry.Slug); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				resp.Skipped = append(resp.Skipped, skippedEntry{Slug: entry.Slug, Reason: "unknown tool"})
				continue
			}
			writeDomainError(w, err)
			return
		}
		if err := h.deps.Prefs.Set(r.Context(), scope, scopeID, entry.Slug, entry.Enabled); err != nil {
			writeDomainError(w, err)
			return
		}
		resp.Updated++
	}
	writeJSON(w, http.StatusOK, resp)
}
