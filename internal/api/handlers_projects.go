package api

import (
	"encoding/json"
	"net/http"

	"github.com/verist/sitechain/internal/chain"
	"github.com/verist/sitechain/internal/ledger"
)

type createProjectRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listProjectsResponse struct {
	Projects []chain.Project `json:"projects"`
}

// handleCreateProject handles POST /v1/projects.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid JSON body")
		return
	}

	p, err := s.ledger.CreateProject(r.Context(), ledger.ProjectInput{
		ID:        req.ID,
		Name:      req.Name,
		ActorID:   actorFromContext(r.Context()),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// handleListProjects handles GET /v1/projects.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.ledger.ListProjects(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listProjectsResponse{Projects: projects})
}
