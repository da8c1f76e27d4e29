package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/arcline/toolgate/pkg/agent"
)

// createAgentRequest is the body for POST /api/v1/agents.
type createAgentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// listAgents handles GET /api/v1/agents: the caller's own agents plus
// global ones.
func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	uc, ok := caller(w, r)
	if !ok {
		return
	}
	agents, err := h.deps.Agents.ListForUser(r.Context(), uc.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

// createAgent handles POST /api/v1/agents.
func (h *Handler) createAgent(w http.ResponseWriter, r *http.Request) {
	uc, ok := caller(w, r)
	if !ok {
		return
	}
	var req createAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	a := &agent.Agent{
		ID:          uuid.NewString(),
		OwnerID:     uc.UserID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := h.deps.Agents.Create(r.Context(), a); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// getAgent handles GET /api/v1/agents/{id}.
func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	uc, ok := caller(w, r)
	if !ok {
		return
	}
	a, err := h.deps.Agents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !a.ReadableBy(uc.UserID) {
		writeError(w, http.StatusForbidden, "agent is not readable by caller")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// deleteAgent handles DELETE /api/v1/agents/{id}. Global agents are mutable
// by nobody, deletion included.
func (h *Handler) deleteAgent(w http.ResponseWriter, r *http.Request) {
	uc, ok := caller(w, r)
	if !ok {
		return
	}
	a, err := h.deps.Agents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !a.MutableBy(uc.UserID) {
		writeError(w, http.StatusForbidden, "agent is not mutable by caller")
		return
	}
	if err := h.deps.Agents.Delete(r.Context(), a.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
