// Package httpapi provides the REST boundary: toolkit enablement, per-tool
// preferences, agent management, connection lifecycle, and the registry
// admin surface.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arcline/toolgate/pkg/agent"
	"github.com/arcline/toolgate/pkg/auth"
	"github.com/arcline/toolgate/pkg/connection"
	"github.com/arcline/toolgate/pkg/preference"
	"github.com/arcline/toolgate/pkg/registry"
	"github.com/arcline/toolgate/pkg/toolkit"
)

// Deps holds the stores and engines the API serves.
type Deps struct {
	Tools    registry.Store
	Prefs    preference.Store
	Agents   agent.Store
	Toolkits *toolkit.Aggregator
	Engine   *connection.Engine
}

// Handler provides the REST API endpoints.
type Handler struct {
	mux        *http.ServeMux
	deps       Deps
	authMiddle func(http.Handler) http.Handler
}

// NewHandler creates the API handler.
func NewHandler(deps Deps, authMiddle func(http.Handler) http.Handler) *Handler {
	h := &Handler{
		mux:        http.NewServeMux(),
		deps:       deps,
		authMiddle: authMiddle,
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.authMiddle != nil {
		h.authMiddle(h.mux).ServeHTTP(w, r)
		return
	}
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all API routes.
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /api/v1/toolkits", h.listToolkits)
	h.mux.HandleFunc("POST /api/v1/toolkits/enabled", h.setAllToolkitsEnabled)
	h.mux.HandleFunc("POST /api/v1/toolkits/{name}/enabled", h.setToolkitEnabled)

	h.mux.HandleFunc("GET /api/v1/tools", h.listTools)
	h.mux.HandleFunc("PUT /api/v1/tools/preferences", h.bulkSetPreferences)

	h.mux.HandleFunc("GET /api/v1/agents", h.listAgents)
	h.mux.HandleFunc("POST /api/v1/agents", h.createAgent)
	h.mux.HandleFunc("GET /api/v1/agents/{id}", h.getAgent)
	h.mux.HandleFunc("DELETE /api/v1/agents/{id}", h.deleteAgent)
	h.mux.HandleFunc("POST /api/v1/agents/{id}/toolkits/copy", h.copyAgentToolkits)

	h.mux.HandleFunc("POST /api/v1/connections", h.createConnection)
	h.mux.HandleFunc("GET /api/v1/connections", h.listConnections)
	h.mux.HandleFunc("DELETE /api/v1/connections/{id}", h.deleteConnection)

	h.mux.HandleFunc("GET /api/v1/registry/tools", h.listRegistryTools)
	h.mux.HandleFunc("POST /api/v1/registry/tools", h.addRegistryTool)
	h.mux.HandleFunc("PATCH /api/v1/registry/tools/{slug}", h.updateRegistryTool)
	h.mux.HandleFunc("DELETE /api/v1/registry/tools/{slug}", h.deleteRegistryTool)
}

// caller returns the authenticated user, or fails the request with 401.
func caller(w http.ResponseWriter, r *http.Request) (*auth.UserContext, bool) {
	uc := auth.GetUserContext(r.Context())
	if uc == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return uc, true
}

// resolveScope validates a (scope, scope_id) pair against the caller.
// User scope is always the caller's own; agent scope requires the agent to
// exist and, for writes, to be owned by the caller. Global agents reject
// every write. The returned status is meaningful only on error.
func (h *Handler) resolveScope(r *http.Request, uc *auth.UserContext, scopeStr, scopeID string, write bool) (preference.Scope, string, int, error) {
	if scopeStr == "" {
		scopeStr = string(preference.ScopeUser)
	}
	scope, err := preference.ParseScope(scopeStr)
	if err != nil {
		return "", "", http.StatusBadRequest, err
	}

	if scope == preference.ScopeUser {
		if scopeID == "" {
			scopeID = uc.UserID
		}
		if scopeID != uc.UserID {
			return "", "", http.StatusForbidden, errors.New("cannot act on another user's preferences")
		}
		return scope, scopeID, 0, nil
	}

	if scopeID == "" {
		return "", "", http.StatusBadRequest, errors.New("scope_id is required for agent scope")
	}
	a, err := h.deps.Agents.Get(r.Context(), scopeID)
	if err != nil {
		if errors.Is(err, agent.ErrNotFound) {
			return "", "", http.StatusNotFound, err
		}
		return "", "", http.StatusInternalServerError, err
	}
	if write {
		if !a.MutableBy(uc.UserID) {
			return "", "", http.StatusForbidden, errors.New("agent is not mutable by caller")
		}
	} else if !a.ReadableBy(uc.UserID) {
		return "", "", http.StatusForbidden, errors.New("agent is not readable by caller")
	}
	return scope, scopeID, 0, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a domain error onto an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	var missing *connection.MissingCredentialError
	var provider *connection.ProviderError
	switch {
	case errors.Is(err, registry.ErrNotFound),
		errors.Is(err, agent.ErrNotFound),
		errors.Is(err, connection.ErrNotFound),
		errors.Is(err, toolkit.ErrToolkitUnknown):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &missing):
		writeError(w, http.StatusBadRequest, missing.Error())
	case errors.As(err, &provider):
		if provider.ClientCorrectable() {
			writeError(w, http.StatusBadRequest, provider.Message)
		} else {
			writeError(w, http.StatusBadGateway, provider.Message)
		}
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
