package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/arcline/toolgate/pkg/connection"
)

// createConnectionRequest is the body for POST /api/v1/connections.
type createConnectionRequest struct {
	AuthConfigID string            `json:"auth_config_id"`
	APIKey       string            `json:"api_key,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`

	// Redirect requests an OAuth-style redirect connection instead of a
	// synchronous API key submission.
	Redirect bool `json:"redirect,omitempty"`
}

// connectionResponse is the wire shape of a connection.
type connectionResponse struct {
	ConnectionID string `json:"connection_id"`
	ToolkitSlug  string `json:"toolkit_slug"`
	Status       string `json:"status"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	IsExisting   bool   `json:"is_existing"`
}

func toConnectionResponse(res *connection.InitiateResult) connectionResponse {
	return connectionResponse{
		ConnectionID: res.Connection.ID,
		ToolkitSlug:  res.Connection.ToolkitSlug,
		Status:       string(res.Connection.Status),
		RedirectURL:  res.Connection.RedirectURL,
		IsExisting:   res.IsExisting,
	}
}

// createConnection handles POST /api/v1/connections.
func (h *Handler) createConnection(w http.ResponseWriter, r *http.Request) {
	uc, ok := caller(w, r)
	if !ok {
		return
	}
	var req createConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.AuthConfigID == "" {
		writeError(w, http.StatusBadRequest, "auth_config_id is required")
		return
	}

	var res *connection.InitiateResult
	var err error
	if req.Redirect {
		res, err = h.deps.Engine.InitiateRedirect(r.Context(), uc.UserID, req.AuthConfigID)
	} else {
		res, err = h.deps.Engine.InitiateAPIKey(r.Context(), uc.UserID, req.AuthConfigID, req.APIKey, req.Fields)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if res.IsExisting {
		status = http.StatusOK
	}
	writeJSON(w, status, toConnectionResponse(res))
}

// listConnections handles GET /api/v1/connections.
func (h *Handler) listConnections(w http.ResponseWriter, r *http.Request) {
	uc, ok := caller(w, r)
	if !ok {
		return
	}
	conns, err := h.deps.Engine.List(r.Context(), uc.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]connectionResponse, 0, len(conns))
	for _, c := range conns {
		out = append(out, connectionResponse{
			ConnectionID: c.ID,
			ToolkitSlug:  c.ToolkitSlug,
			Status:       string(c.Status),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// deleteConnection handles DELETE /api/v1/connections/{id}. The caller may
// only revoke their own connections.
func (h *Handler) deleteConnection(w http.ResponseWriter, r *http.Request) {
	uc, ok := caller(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	conns, err := h.deps.Engine.List(r.Context(), uc.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	owned := false
	for _, c := range conns {
		if c.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}

	if err := h.deps.Engine.Revoke(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
