package ledger

import (
	"context"
	"log/slog"

	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/chain"
	"github.com/verist/sitechain/internal/store"
)

// maxAppendRetries bounds head re-reads when another process claimed the
// same seq. Within one process the scope lock makes retries unnecessary.
const maxAppendRetries = 3

// Audit actions written by the ledger itself.
const (
	ActionCreateProject  = "CREATE_PROJECT"
	ActionLogProgress    = "LOG_PROGRESS"
	ActionPurgeAuditLogs = "PURGE_AUDIT_LOGS"
)

// ProgressInput is a caller-supplied progress report. The ledger assigns
// id, seq, created_at, and both hashes.
type ProgressInput struct {
	ProjectID       string
	ReportDate      canonical.Date
	ReportedPercent canonical.Decimal
	ReportedBy      string
	Remarks         string

	// Transport metadata recorded on the follow-on LOG_PROGRESS audit
	// entry, never on the progress record itself.
	IPAddress string
	UserAgent string
}

// AuditInput is a caller-supplied audit event. The ledger assigns id, seq,
// created_at, and both hashes.
type AuditInput struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Detail     canonical.Object
	IPAddress  string
	UserAgent  string
}

// ProjectInput registers a new project.
type ProjectInput struct {
	ID        string
	Name      string
	ActorID   string
	IPAddress string
	UserAgent string
}

// AppendProgress appends one report to a project's progress chain, then
// writes a LOG_PROGRESS record to the audit chain.
//
// The progress record is durable once its insert commits. A failure writing
// the follow-on audit record does not unwind it; the error is returned and
// the caller must check whether the report landed before retrying.
func (l *Ledger) AppendProgress(ctx context.Context, input ProgressInput) (chain.ProgressRecord, error) {
	scope := chain.ProgressScope(input.ProjectID)

	if err := validateProgressInput(l.clock, input); err != nil {
		return chain.ProgressRecord{}, err
	}
	if err := l.requireProject(ctx, input.ProjectID); err != nil {
		return chain.ProgressRecord{}, err
	}

	unlock := l.locks.lock(scope.String())
	rec, err := l.insertProgressLocked(ctx, scope, input)
	unlock()
	if err != nil {
		return chain.ProgressRecord{}, err
	}

	// Every report leaves a trace on the audit chain.
	// Separate chain, separate lock, never nested with the progress lock.
	_, err = l.appendAudit(ctx, AuditInput{
		ActorID:    input.ReportedBy,
		Action:     ActionLogProgress,
		EntityType: "progress_log",
		EntityID:   rec.ID,
		Detail: canonical.Object{
			"project_id":       canonical.String(rec.ProjectID),
			"report_date":      rec.ReportDate,
			"reported_percent": rec.ReportedPercent,
		},
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		slog.Error("progress audit trail write failed",
			"project_id", rec.ProjectID,
			"record_id", rec.ID,
			"error", err)
		return chain.ProgressRecord{}, chain.NewStorageError(scope, "progress audit trail (report committed)", err)
	}

	return rec, nil
}

// insertProgressLocked runs the head-read/hash/insert steps. Caller holds
// the progress scope lock.
func (l *Ledger) insertProgressLocked(ctx context.Context, scope chain.Scope, input ProgressInput) (chain.ProgressRecord, error) {
	for attempt := 0; ; attempt++ {
		head, found, err := l.store.LatestProgress(ctx, input.ProjectID)
		if err != nil {
			return chain.ProgressRecord{}, chain.NewStorageError(scope, "read chain head", err)
		}
		prevHash := chain.EmptyPrevHash
		if found {
			prevHash = head.RecordHash
		}

		maxSeq, err := l.store.MaxProgressSeq(ctx, input.ProjectID)
		if err != nil {
			return chain.ProgressRecord{}, chain.NewStorageError(scope, "read max seq", err)
		}

		recordHash, err := chain.ProgressHash(input.ProjectID, input.ReportedPercent, input.ReportDate, input.ReportedBy, prevHash)
		if err != nil {
			return chain.ProgressRecord{}, chain.NewStorageError(scope, "compute hash", err)
		}

		rec := chain.ProgressRecord{
			ID:              l.ids.Generate(),
			ProjectID:       input.ProjectID,
			Seq:             maxSeq + 1,
			ReportDate:      input.ReportDate,
			ReportedPercent: input.ReportedPercent,
			ReportedBy:      input.ReportedBy,
			Remarks:         input.Remarks,
			CreatedAt:       canonical.TimeOf(l.clock.Now()),
			PrevHash:        prevHash,
			RecordHash:      recordHash,
		}

		inserted, err := l.store.InsertProgress(ctx, rec)
		if err != nil {
			if store.IsUniqueViolation(err) && attempt+1 < maxAppendRetries {
				slog.Warn("progress append raced with another writer, retrying",
					"project_id", input.ProjectID,
					"seq", rec.Seq)
				continue
			}
			return chain.ProgressRecord{}, chain.NewStorageError(scope, "insert progress", err)
		}
		if !inserted {
			return chain.ProgressRecord{}, chain.NewDuplicateRecordError(scope, input.ReportDate.String())
		}

		slog.Debug("progress appended",
			"scope", scope.String(),
			"seq", rec.Seq,
			"record_hash", rec.RecordHash[:8])
		return rec, nil
	}
}

// AppendAudit appends one record to the global audit chain.
func (l *Ledger) AppendAudit(ctx context.Context, input AuditInput) (chain.AuditRecord, error) {
	if err := validateAuditInput(input); err != nil {
		return chain.AuditRecord{}, err
	}
	return l.appendAudit(ctx, input)
}

// appendAudit takes the audit scope lock and appends. Validation is the
// public wrapper's job: internal callers (progress trail, purge trail)
// construct known-good inputs.
func (l *Ledger) appendAudit(ctx context.Context, input AuditInput) (chain.AuditRecord, error) {
	scope := chain.AuditScope()

	unlock := l.locks.lock(scope.String())
	defer unlock()

	return l.appendAuditLocked(ctx, input)
}

// appendAuditLocked runs the head-read/hash/insert steps. Caller holds the
// audit scope lock.
func (l *Ledger) appendAuditLocked(ctx context.Context, input AuditInput) (chain.AuditRecord, error) {
	scope := chain.AuditScope()

	for attempt := 0; ; attempt++ {
		head, found, err := l.store.LatestAudit(ctx)
		if err != nil {
			return chain.AuditRecord{}, chain.NewStorageError(scope, "read chain head", err)
		}
		prevHash := chain.EmptyPrevHash
		if found {
			prevHash = head.RecordHash
		}

		maxSeq, err := l.store.MaxAuditSeq(ctx)
		if err != nil {
			return chain.AuditRecord{}, chain.NewStorageError(scope, "read max seq", err)
		}

		createdAt := canonical.TimeOf(l.clock.Now())
		recordHash, err := chain.AuditHash(input.ActorID, input.Action, input.EntityType, input.EntityID, input.Detail, createdAt, prevHash)
		if err != nil {
			return chain.AuditRecord{}, chain.NewStorageError(scope, "compute hash", err)
		}

		rec := chain.AuditRecord{
			ID:         l.ids.Generate(),
			Seq:        maxSeq + 1,
			ActorID:    input.ActorID,
			Action:     input.Action,
			EntityType: input.EntityType,
			EntityID:   input.EntityID,
			Detail:     input.Detail,
			IPAddress:  input.IPAddress,
			UserAgent:  input.UserAgent,
			CreatedAt:  createdAt,
			PrevHash:   prevHash,
			RecordHash: recordHash,
		}

		if err := l.store.InsertAudit(ctx, rec); err != nil {
			if store.IsUniqueViolation(err) && attempt+1 < maxAppendRetries {
				slog.Warn("audit append raced with another writer, retrying",
					"action", input.Action,
					"seq", rec.Seq)
				continue
			}
			return chain.AuditRecord{}, chain.NewStorageError(scope, "insert audit", err)
		}

		slog.Debug("audit appended",
			"scope", scope.String(),
			"seq", rec.Seq,
			"action", rec.Action,
			"record_hash", rec.RecordHash[:8])
		return rec, nil
	}
}

// CreateProject registers a project and records CREATE_PROJECT on the
// audit chain. The registry row is durable once inserted; an audit failure
// after that surfaces as an error without unregistering the project.
func (l *Ledger) CreateProject(ctx context.Context, input ProjectInput) (chain.Project, error) {
	scope := chain.ProgressScope(input.ID)

	if input.ID == "" {
		return chain.Project{}, chain.NewValidationError(scope, "project id is required")
	}
	if input.Name == "" {
		return chain.Project{}, chain.NewValidationError(scope, "project name is required")
	}
	if input.ActorID == "" {
		return chain.Project{}, chain.NewValidationError(scope, "actor id is required")
	}

	p := chain.Project{
		ID:        input.ID,
		Name:      input.Name,
		CreatedAt: canonical.TimeOf(l.clock.Now()),
	}

	inserted, err := l.store.CreateProject(ctx, p)
	if err != nil {
		return chain.Project{}, chain.NewStorageError(scope, "create project", err)
	}
	if !inserted {
		return chain.Project{}, chain.NewValidationError(scope, "project already registered")
	}

	_, err = l.appendAudit(ctx, AuditInput{
		ActorID:    input.ActorID,
		Action:     ActionCreateProject,
		EntityType: "project",
		EntityID:   p.ID,
		Detail: canonical.Object{
			"name": canonical.String(p.Name),
		},
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		slog.Error("project audit trail write failed",
			"project_id", p.ID,
			"error", err)
		return chain.Project{}, chain.NewStorageError(scope, "project audit trail (project committed)", err)
	}

	slog.Debug("project created", "project_id", p.ID)
	return p, nil
}

// validateProgressInput enforces the payload rules shared by every entry
// point. Percent bounds are inclusive; the report date may be today but
// never after it (UTC day).
func validateProgressInput(clock Clock, input ProgressInput) error {
	scope := chain.ProgressScope(input.ProjectID)

	if input.ProjectID == "" {
		return chain.NewValidationError(scope, "project id is required")
	}
	if input.ReportedBy == "" {
		return chain.NewValidationError(scope, "reported_by is required")
	}
	if input.ReportDate.IsZero() {
		return chain.NewValidationError(scope, "report_date is required")
	}
	if input.ReportedPercent < 0 || input.ReportedPercent > canonical.Decimal(10000) {
		return chain.NewValidationError(scope, "reported_percent must be between 0 and 100")
	}
	today := canonical.DateOf(clock.Now())
	if input.ReportDate.After(today) {
		return chain.NewValidationError(scope, "report_date cannot be in the future")
	}
	return nil
}

func validateAuditInput(input AuditInput) error {
	scope := chain.AuditScope()

	if input.ActorID == "" {
		return chain.NewValidationError(scope, "actor id is required")
	}
	if input.Action == "" {
		return chain.NewValidationError(scope, "action is required")
	}
	if input.EntityType == "" {
		return chain.NewValidationError(scope, "entity type is required")
	}
	return nil
}
