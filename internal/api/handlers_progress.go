package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/chain"
	"github.com/verist/sitechain/internal/ledger"
)

type progressRequest struct {
	ReportDate      string            `json:"report_date"`
	ReportedPercent canonical.Decimal `json:"reported_percent"`
	Remarks         string            `json:"remarks"`
}

type progressHistoryResponse struct {
	ProjectID string                 `json:"project_id"`
	Records   []ledger.ProgressEntry `json:"records"`
}

// handleAppendProgress handles POST /v1/projects/{projectID}/progress.
// The actor header is the reporter.
func (s *Server) handleAppendProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Decimal decoding rejects quoted numbers, exponents, and more
		// than two fractional digits; surface the reason.
		writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid JSON body: "+err.Error())
		return
	}

	reportDate, err := canonical.ParseDate(req.ReportDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "report_date must be YYYY-MM-DD")
		return
	}

	rec, err := s.ledger.AppendProgress(r.Context(), ledger.ProgressInput{
		ProjectID:       chi.URLParam(r, "projectID"),
		ReportDate:      reportDate,
		ReportedPercent: req.ReportedPercent,
		ReportedBy:      actorFromContext(r.Context()),
		Remarks:         req.Remarks,
		IPAddress:       r.RemoteAddr,
		UserAgent:       r.UserAgent(),
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleListProgress handles GET /v1/projects/{projectID}/progress.
func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	entries, err := s.ledger.History(r.Context(), projectID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progressHistoryResponse{ProjectID: projectID, Records: entries})
}

// handleLatestProgress handles GET /v1/projects/{projectID}/progress/latest.
func (s *Server) handleLatestProgress(w http.ResponseWriter, r *http.Request) {
	rec, found, err := s.ledger.GetLatest(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no progress recorded")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleVerifyProgress handles GET /v1/projects/{projectID}/progress/verify.
func (s *Server) handleVerifyProgress(w http.ResponseWriter, r *http.Request) {
	result, err := s.ledger.VerifyChain(r.Context(), chain.ProgressScope(chi.URLParam(r, "projectID")))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
