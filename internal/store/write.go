package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/chain"
)

// IsUniqueViolation reports whether err is a SQLite UNIQUE constraint
// violation. Appends within one process are serialized, but two processes
// sharing the database file (server plus CLI) can still race to the same
// seq; the ledger re-reads the chain head and retries on this error.
func IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// CreateProject inserts a project registry row.
// Uses ON CONFLICT(id) DO NOTHING so callers can detect an already-taken
// ID via the inserted flag instead of parsing driver errors.
func (s *Store) CreateProject(ctx context.Context, p chain.Project) (inserted bool, err error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO projects
		(id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		p.ID,
		p.Name,
		p.CreatedAt.String(),
	)
	if err != nil {
		return false, fmt.Errorf("create project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create project: rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// InsertProgress appends a progress record to a project's chain.
// Returns inserted=false when a record for (project_id, report_date)
// already exists: the ON CONFLICT target covers exactly that constraint,
// so the duplicate-report case is detected via RowsAffected while every
// other violation (seq collision, missing project) still errors loudly.
//
// The caller is responsible for computing prev_hash and record_hash
// against the current chain head before inserting; the store does not
// re-derive them.
func (s *Store) InsertProgress(ctx context.Context, rec chain.ProgressRecord) (inserted bool, err error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO progress_logs
		(id, project_id, seq, report_date, reported_percent, reported_by, remarks, created_at, prev_hash, record_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, report_date) DO NOTHING
	`,
		rec.ID,
		rec.ProjectID,
		rec.Seq,
		rec.ReportDate.String(),
		int64(rec.ReportedPercent),
		rec.ReportedBy,
		rec.Remarks,
		rec.CreatedAt.String(),
		rec.PrevHash,
		rec.RecordHash,
	)
	if err != nil {
		return false, fmt.Errorf("insert progress: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert progress: rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// InsertAudit appends a record to the global audit chain.
// There is no conflict clause: audit appends are serialized by the ledger,
// so any collision on id or seq is a bug and must surface as an error.
func (s *Store) InsertAudit(ctx context.Context, rec chain.AuditRecord) error {
	detailJSON, err := marshalDetail(rec.Detail)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_logs
		(id, seq, actor_id, action, entity_type, entity_id, detail, ip_address, user_agent, created_at, prev_hash, record_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Seq,
		rec.ActorID,
		rec.Action,
		rec.EntityType,
		rec.EntityID,
		detailJSON,
		rec.IPAddress,
		rec.UserAgent,
		rec.CreatedAt.String(),
		rec.PrevHash,
		rec.RecordHash,
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}

	return nil
}

// PurgeAuditBefore deletes audit records older than the cutoff and returns
// how many were removed. The fixed timestamp layout sorts lexicographically
// in chronological order, so a plain string comparison is a time comparison.
func (s *Store) PurgeAuditBefore(ctx context.Context, cutoff canonical.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM audit_logs
		WHERE created_at < ?
	`, cutoff.String())
	if err != nil {
		return 0, fmt.Errorf("purge audit: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit: rows affected: %w", err)
	}
	return removed, nil
}
