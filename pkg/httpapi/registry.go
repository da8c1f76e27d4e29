package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/arcline/toolgate/pkg/registry"
)

// adminOnly fails the request with 403 unless the caller holds the admin
// role. Registry mutation changes what every user sees.
func adminOnly(w http.ResponseWriter, r *http.Request) bool {
	uc, ok := caller(w, r)
	if !ok {
		return false
	}
	if !uc.HasRole("admin") {
		writeError(w, http.StatusForbidden, "admin role required")
		return false
	}
	return true
}

// listRegistryTools handles GET /api/v1/registry/tools.
func (h *Handler) listRegistryTools(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	tools, err := h.deps.Tools.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

// addRegistryTool handles POST /api/v1/registry/tools.
func (h *Handler) addRegistryTool(w http.ResponseWriter, r *http.Request) {
	if !adminOnly(w, r) {
		return
	}
	var tool registry.Tool
	if err := json.NewDecoder(r.Body).Decode(&tool); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if tool.Slug == "" {
		writeError(w, http.StatusBadRequest, "slug is required")
		return
	}
	if tool.ToolkitSlug == "" || tool.ToolkitName == "" {
		writeError(w, http.StatusBadRequest, "toolkit_slug and toolkit_name are required")
		return
	}
	if err := h.deps.Tools.Add(r.Context(), tool); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tool)
}

// updateRegistryTool handles PATCH /api/v1/registry/tools/{slug}.
func (h *Handler) updateRegistryTool(w http.ResponseWriter, r *http.Request) {
	if !adminOnly(w, r) {
		return
	}
	var patch registry.FieldPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	slug := r.PathValue("slug")
	if err := h.deps.Tools.Update(r.Context(), slug, patch); err != nil {
		writeDomainError(w, err)
		return
	}
	tool, err := h.deps.Tools.Get(r.Context(), slug)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

// deleteRegistryTool handles DELETE /api/v1/registry/tools/{slug}. Removing
// a tool also removes its preference rows in both scopes so no orphaned
// enablement survives.
func (h *Handler) deleteRegistryTool(w http.ResponseWriter, r *http.Request) {
	if !adminOnly(w, r) {
		return
	}
	slug := r.PathValue("slug")
	if err := h.deps.Tools.Delete(r.Context(), slug); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.deps.Prefs.DeleteForTool(r.Context(), slug); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
