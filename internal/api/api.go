// Package api exposes the ledger over HTTP: chi routing, JSON bodies,
// actor identity from the X-Actor-Id header on write endpoints.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verist/sitechain/internal/ledger"
)

// Server holds the handler dependencies.
type Server struct {
	ledger      *ledger.Ledger
	exportLimit int64
}

// NewServer builds a Server. exportLimit caps export responses; values
// below 1 fall back to 10000.
func NewServer(l *ledger.Ledger, exportLimit int64) *Server {
	if exportLimit < 1 {
		exportLimit = 10000
	}
	return &Server{ledger: l, exportLimit: exportLimit}
}

// Handler assembles the route tree. Write endpoints require an actor;
// reads are open.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.With(requireActor).Post("/", s.handleCreateProject)

			r.Route("/{projectID}/progress", func(r chi.Router) {
				r.Get("/", s.handleListProgress)
				r.With(requireActor).Post("/", s.handleAppendProgress)
				r.Get("/latest", s.handleLatestProgress)
				r.Get("/verify", s.handleVerifyProgress)
			})
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/", s.handleQueryAudit)
			r.With(requireActor).Post("/", s.handleAppendAudit)
			r.Get("/stats", s.handleAuditStats)
			r.Get("/stats/timeline", s.handleAuditTimeline)
			r.Get("/verify", s.handleVerifyAudit)
			r.Get("/export", s.handleExportAudit)
			r.Get("/entity/{entityType}/{entityID}", s.handleEntityAudit)
			r.Get("/{auditID}", s.handleGetAudit)
		})
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Store().Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
