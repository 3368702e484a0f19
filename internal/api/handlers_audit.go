package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/verist/sitechain/internal/auditq"
	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/chain"
	"github.com/verist/sitechain/internal/ledger"
	"github.com/verist/sitechain/internal/store"
)

// Listing bounds. Export uses the configured cap instead.
const (
	defaultPageLimit = 50
	maxPageLimit     = 1000
)

type auditRequest struct {
	Action     string           `json:"action"`
	EntityType string           `json:"entity_type"`
	EntityID   string           `json:"entity_id"`
	Detail     canonical.Object `json:"detail"`
}

type auditPageResponse struct {
	Records []chain.AuditRecord `json:"records"`
	Total   int64               `json:"total"`
	Limit   int64               `json:"limit"`
	Offset  int64               `json:"offset"`
}

type entityAuditResponse struct {
	EntityType string              `json:"entity_type"`
	EntityID   string              `json:"entity_id"`
	Records    []chain.AuditRecord `json:"records"`
}

// handleAppendAudit handles POST /v1/audit. Transport metadata comes from
// the request, never from the body.
func (s *Server) handleAppendAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Detail decoding enforces canonical JSON rules: no null, no
		// exponents, at most two fractional digits.
		writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid JSON body: "+err.Error())
		return
	}

	rec, err := s.ledger.AppendAudit(r.Context(), ledger.AuditInput{
		ActorID:    actorFromContext(r.Context()),
		Action:     req.Action,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Detail:     req.Detail,
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleQueryAudit handles GET /v1/audit with filter, range, and paging
// parameters.
func (s *Server) handleQueryAudit(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := auditq.Criteria{
		Action:     params.Get("action"),
		EntityType: params.Get("entity_type"),
		EntityID:   params.Get("entity_id"),
		ActorID:    params.Get("actor_id"),
		Limit:      defaultPageLimit,
	}

	if v := params.Get("from"); v != "" {
		ts, err := parseTimeParam(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "from "+err.Error())
			return
		}
		q.From = ts
	}
	if v := params.Get("to"); v != "" {
		ts, err := parseTimeParam(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "to "+err.Error())
			return
		}
		q.To = ts
	}
	if v := params.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 || n > maxPageLimit {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				fmt.Sprintf("limit must be between 1 and %d", maxPageLimit))
			return
		}
		q.Limit = n
	}
	if v := params.Get("offset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "offset must be non-negative")
			return
		}
		q.Offset = n
	}

	records, total, err := s.ledger.QueryAudit(r.Context(), q)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auditPageResponse{
		Records: records,
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
}

// handleGetAudit handles GET /v1/audit/{auditID}.
func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	rec, found, err := s.ledger.GetAudit(r.Context(), chi.URLParam(r, "auditID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "audit record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleVerifyAudit handles GET /v1/audit/verify.
func (s *Server) handleVerifyAudit(w http.ResponseWriter, r *http.Request) {
	result, err := s.ledger.VerifyChain(r.Context(), chain.AuditScope())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAuditStats handles GET /v1/audit/stats.
func (s *Server) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Stats(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// auditTimelineResponse is the payload for GET /v1/audit/stats/timeline.
type auditTimelineResponse struct {
	Bucket   string                  `json:"bucket"`
	Timeline []store.TimeBucketCount `json:"timeline"`
}

// handleAuditTimeline handles GET /v1/audit/stats/timeline.
// Accepts bucket=hour|day|week|month (default day) plus optional
// from/to bounds in the same formats handleQueryAudit takes.
func (s *Server) handleAuditTimeline(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	bucket := params.Get("bucket")
	if bucket == "" {
		bucket = ledger.TimelineDay
	}

	var from, to canonical.Time
	if v := params.Get("from"); v != "" {
		ts, err := parseTimeParam(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "from "+err.Error())
			return
		}
		from = ts
	}
	if v := params.Get("to"); v != "" {
		ts, err := parseTimeParam(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "to "+err.Error())
			return
		}
		to = ts
	}

	timeline, err := s.ledger.Timeline(r.Context(), bucket, from, to)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auditTimelineResponse{
		Bucket:   bucket,
		Timeline: timeline,
	})
}

// handleEntityAudit handles GET /v1/audit/entity/{entityType}/{entityID}.
func (s *Server) handleEntityAudit(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")

	records, err := s.ledger.EntityHistory(r.Context(), entityType, entityID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entityAuditResponse{
		EntityType: entityType,
		EntityID:   entityID,
		Records:    records,
	})
}

// handleExportAudit handles GET /v1/audit/export?format=json|csv. The
// response is capped at the configured export limit, in chain order from
// the first retained record.
func (s *Server) handleExportAudit(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "format must be json or csv")
		return
	}

	records, err := s.ledger.Export(r.Context(), s.exportLimit)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "audit_export_"+stamp+"."+format))

	if format == "json" {
		writeJSON(w, http.StatusOK, records)
		return
	}
	writeAuditCSV(w, records)
}

// writeAuditCSV streams records as CSV. The detail column carries the
// canonical JSON text, the exact form the digest was computed over.
func writeAuditCSV(w http.ResponseWriter, records []chain.AuditRecord) {
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"seq", "id", "actor_id", "action", "entity_type", "entity_id",
		"detail", "ip_address", "user_agent", "created_at", "prev_hash", "record_hash",
	})
	for _, rec := range records {
		detail, err := canonical.MarshalCanonical(rec.Detail)
		if err != nil {
			// Stored details round-tripped the canonical parser, so this
			// does not happen for committed records.
			slog.Error("export: marshal detail", "id", rec.ID, "error", err)
			detail = []byte("{}")
		}
		_ = cw.Write([]string{
			strconv.FormatInt(rec.Seq, 10),
			rec.ID,
			rec.ActorID,
			rec.Action,
			rec.EntityType,
			rec.EntityID,
			string(detail),
			rec.IPAddress,
			rec.UserAgent,
			rec.CreatedAt.String(),
			rec.PrevHash,
			rec.RecordHash,
		})
	}
	cw.Flush()
}

// parseTimeParam accepts a calendar date (interpreted as midnight UTC) or
// the full microsecond timestamp layout.
func parseTimeParam(s string) (canonical.Time, error) {
	if ts, err := canonical.ParseTime(s); err == nil {
		return ts, nil
	}
	d, err := canonical.ParseDate(s)
	if err != nil {
		return canonical.Time{}, fmt.Errorf("must be %s or %s", canonical.DateLayout, canonical.TimeLayout)
	}
	return canonical.TimeOf(d.AsTime()), nil
}
