package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/verist/sitechain/internal/auditq"
	"github.com/verist/sitechain/internal/auditsql"
	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/chain"
)

// GetProject retrieves a single project by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetProject(ctx context.Context, id string) (chain.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at
		FROM projects
		WHERE id = ?
	`, id)

	return scanProjectRow(row)
}

// ProjectExists reports whether a project registry row exists.
func (s *Store) ProjectExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM projects WHERE id = ?
	`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check project: %w", err)
	}
	return count > 0, nil
}

// ListProjects returns all projects with deterministic ordering.
// Returns an empty slice (not nil) if the registry is empty.
func (s *Store) ListProjects(ctx context.Context) ([]chain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM projects
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []chain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	// Return empty slice instead of nil
	if projects == nil {
		projects = []chain.Project{}
	}

	return projects, nil
}

// ListProgress returns a project's full progress chain in seq order.
// A single SELECT sees one consistent snapshot, so the returned slice is
// a coherent view of the chain even with concurrent appends.
//
// Returns an empty slice (not nil) if the chain is empty.
func (s *Store) ListProgress(ctx context.Context, projectID string) ([]chain.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, seq, report_date, reported_percent, reported_by, remarks, created_at, prev_hash, record_hash
		FROM progress_logs
		WHERE project_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var records []chain.ProgressRecord
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}

	if records == nil {
		records = []chain.ProgressRecord{}
	}

	return records, nil
}

// LatestProgress returns the chain head for a project.
// found is false when the chain is empty; that is the normal state before
// the first report, not an error.
func (s *Store) LatestProgress(ctx context.Context, projectID string) (rec chain.ProgressRecord, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, seq, report_date, reported_percent, reported_by, remarks, created_at, prev_hash, record_hash
		FROM progress_logs
		WHERE project_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, projectID)

	rec, err = scanProgressRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return chain.ProgressRecord{}, false, nil
	}
	if err != nil {
		return chain.ProgressRecord{}, false, err
	}
	return rec, true, nil
}

// MaxProgressSeq returns the highest seq in a project's chain, 0 if empty.
// The ledger resumes its per-scope counter from this value.
func (s *Store) MaxProgressSeq(ctx context.Context, projectID string) (int64, error) {
	var maxSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM progress_logs WHERE project_id = ?
	`, projectID).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("get max progress seq: %w", err)
	}
	return maxSeq, nil
}

// ListAudit returns the global audit chain in seq order. limit <= 0 returns
// every record; a positive limit caps the result for exports.
//
// Returns an empty slice (not nil) if the chain is empty.
func (s *Store) ListAudit(ctx context.Context, limit int64) ([]chain.AuditRecord, error) {
	query := `
		SELECT id, seq, actor_id, action, entity_type, entity_id, detail, ip_address, user_agent, created_at, prev_hash, record_hash
		FROM audit_logs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var records []chain.AuditRecord
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit: %w", err)
	}

	if records == nil {
		records = []chain.AuditRecord{}
	}

	return records, nil
}

// LatestAudit returns the head of the global audit chain.
// found is false when the chain is empty.
func (s *Store) LatestAudit(ctx context.Context) (rec chain.AuditRecord, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, actor_id, action, entity_type, entity_id, detail, ip_address, user_agent, created_at, prev_hash, record_hash
		FROM audit_logs
		ORDER BY seq DESC
		LIMIT 1
	`)

	rec, err = scanAuditRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return chain.AuditRecord{}, false, nil
	}
	if err != nil {
		return chain.AuditRecord{}, false, err
	}
	return rec, true, nil
}

// MaxAuditSeq returns the highest seq on the audit chain, 0 if empty.
func (s *Store) MaxAuditSeq(ctx context.Context) (int64, error) {
	var maxSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM audit_logs
	`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("get max audit seq: %w", err)
	}
	return maxSeq, nil
}

// GetAuditByID retrieves a single audit record by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetAuditByID(ctx context.Context, id string) (chain.AuditRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, actor_id, action, entity_type, entity_id, detail, ip_address, user_agent, created_at, prev_hash, record_hash
		FROM audit_logs
		WHERE id = ?
	`, id)

	return scanAuditRow(row)
}

// QueryAudit returns one page of filtered audit records, newest first,
// plus the total number of records matching the filter. The count and
// page statements are compiled from the same criteria and run inside a
// single transaction, so the total always describes the same snapshot
// the page is drawn from even while another process is appending.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) QueryAudit(ctx context.Context, c auditq.Criteria) ([]chain.AuditRecord, int64, error) {
	count, err := auditsql.CompileCount(c)
	if err != nil {
		return nil, 0, fmt.Errorf("compile audit count: %w", err)
	}

	page, err := auditsql.CompilePage(c)
	if err != nil {
		return nil, 0, fmt.Errorf("compile audit page: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin audit query: %w", err)
	}
	defer tx.Rollback()

	var total int64
	if err := tx.QueryRowContext(ctx, count.SQL, count.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit: %w", err)
	}

	rows, err := tx.QueryContext(ctx, page.SQL, page.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit page: %w", err)
	}
	defer rows.Close()

	var records []chain.AuditRecord
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit page: %w", err)
	}

	if records == nil {
		records = []chain.AuditRecord{}
	}

	return records, total, nil
}

// EntityAudit returns the audit history for one entity in seq order.
// Returns an empty slice (not nil) when the entity has no records.
func (s *Store) EntityAudit(ctx context.Context, entityType, entityID string) ([]chain.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, actor_id, action, entity_type, entity_id, detail, ip_address, user_agent, created_at, prev_hash, record_hash
		FROM audit_logs
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("query entity audit: %w", err)
	}
	defer rows.Close()

	var records []chain.AuditRecord
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity audit: %w", err)
	}

	if records == nil {
		records = []chain.AuditRecord{}
	}

	return records, nil
}

// CountAudit returns the total number of audit records.
func (s *Store) CountAudit(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_logs
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit: %w", err)
	}
	return count, nil
}

// ActionCount is one row of the by-action audit histogram.
type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// ActorCount is one row of the by-actor audit histogram.
type ActorCount struct {
	ActorID string `json:"actor_id"`
	Count   int64  `json:"count"`
}

// ActionStats returns record counts grouped by action, largest first.
func (s *Store) ActionStats(ctx context.Context) ([]ActionCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action, COUNT(*) AS n
		FROM audit_logs
		GROUP BY action
		ORDER BY n DESC, action ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query action stats: %w", err)
	}
	defer rows.Close()

	var stats []ActionCount
	for rows.Next() {
		var ac ActionCount
		if err := rows.Scan(&ac.Action, &ac.Count); err != nil {
			return nil, fmt.Errorf("scan action stats: %w", err)
		}
		stats = append(stats, ac)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action stats: %w", err)
	}

	if stats == nil {
		stats = []ActionCount{}
	}

	return stats, nil
}

// ActorStats returns record counts grouped by actor, largest first.
func (s *Store) ActorStats(ctx context.Context) ([]ActorCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT actor_id, COUNT(*) AS n
		FROM audit_logs
		GROUP BY actor_id
		ORDER BY n DESC, actor_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query actor stats: %w", err)
	}
	defer rows.Close()

	var stats []ActorCount
	for rows.Next() {
		var ac ActorCount
		if err := rows.Scan(&ac.ActorID, &ac.Count); err != nil {
			return nil, fmt.Errorf("scan actor stats: %w", err)
		}
		stats = append(stats, ac)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actor stats: %w", err)
	}

	if stats == nil {
		stats = []ActorCount{}
	}

	return stats, nil
}

// EntityTypeCount is one row of the by-entity-type audit histogram.
type EntityTypeCount struct {
	EntityType string `json:"entity_type"`
	Count      int64  `json:"count"`
}

// EntityTypeStats returns record counts grouped by entity type, largest first.
func (s *Store) EntityTypeStats(ctx context.Context) ([]EntityTypeCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_type, COUNT(*) AS n
		FROM audit_logs
		GROUP BY entity_type
		ORDER BY n DESC, entity_type ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entity type stats: %w", err)
	}
	defer rows.Close()

	var stats []EntityTypeCount
	for rows.Next() {
		var ec EntityTypeCount
		if err := rows.Scan(&ec.EntityType, &ec.Count); err != nil {
			return nil, fmt.Errorf("scan entity type stats: %w", err)
		}
		stats = append(stats, ec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity type stats: %w", err)
	}

	if stats == nil {
		stats = []EntityTypeCount{}
	}

	return stats, nil
}

// TimeBucketCount is one bar of the audit timeline. Bucket is the
// truncated created_at prefix naming the bucket start: "2024-06-01T08"
// for hour buckets, "2024-06-01" for day and week buckets, "2024-06"
// for month buckets.
type TimeBucketCount struct {
	Bucket string `json:"bucket"`
	Count  int64  `json:"count"`
}

// timelineBucketExpr returns the SQL expression truncating created_at
// to the start of the named bucket. The fixed timestamp layout makes
// every prefix both a valid bucket label and lexicographically ordered,
// so hour, day, and month buckets are plain substrings. Week buckets
// fold each date back to its preceding Monday.
func timelineBucketExpr(bucket string) (string, error) {
	switch bucket {
	case "hour":
		return "substr(created_at, 1, 13)", nil
	case "day":
		return "substr(created_at, 1, 10)", nil
	case "week":
		return "date(substr(created_at, 1, 10), '-' || ((strftime('%w', substr(created_at, 1, 10)) + 6) % 7) || ' days')", nil
	case "month":
		return "substr(created_at, 1, 7)", nil
	default:
		return "", fmt.Errorf("unknown timeline bucket: %q", bucket)
	}
}

// TimelineStats returns audit record counts grouped into time buckets,
// oldest bucket first. From is inclusive and To exclusive; a zero bound
// leaves that side of the range open. Buckets with no records are
// omitted rather than zero-filled.
func (s *Store) TimelineStats(ctx context.Context, bucket string, from, to canonical.Time) ([]TimeBucketCount, error) {
	expr, err := timelineBucketExpr(bucket)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(expr)
	sb.WriteString(" AS bucket, COUNT(*) AS n FROM audit_logs")

	var args []any
	var conds []string
	if !from.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, from.String())
	}
	if !to.IsZero() {
		conds = append(conds, "created_at < ?")
		args = append(args, to.String())
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" GROUP BY bucket ORDER BY bucket ASC")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query timeline stats: %w", err)
	}
	defer rows.Close()

	var stats []TimeBucketCount
	for rows.Next() {
		var tc TimeBucketCount
		if err := rows.Scan(&tc.Bucket, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan timeline stats: %w", err)
		}
		stats = append(stats, tc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline stats: %w", err)
	}

	if stats == nil {
		stats = []TimeBucketCount{}
	}

	return stats, nil
}

// scanProject scans a row into a Project struct.
func scanProject(rows *sql.Rows) (chain.Project, error) {
	var p chain.Project
	var createdAt string

	if err := rows.Scan(&p.ID, &p.Name, &createdAt); err != nil {
		return chain.Project{}, fmt.Errorf("scan project: %w", err)
	}

	ts, err := canonical.ParseTime(createdAt)
	if err != nil {
		return chain.Project{}, fmt.Errorf("scan project: %w", err)
	}
	p.CreatedAt = ts

	return p, nil
}

// scanProjectRow scans a single row into a Project struct.
func scanProjectRow(row *sql.Row) (chain.Project, error) {
	var p chain.Project
	var createdAt string

	if err := row.Scan(&p.ID, &p.Name, &createdAt); err != nil {
		return chain.Project{}, fmt.Errorf("scan project: %w", err)
	}

	ts, err := canonical.ParseTime(createdAt)
	if err != nil {
		return chain.Project{}, fmt.Errorf("scan project: %w", err)
	}
	p.CreatedAt = ts

	return p, nil
}

// scanProgress scans a row into a ProgressRecord struct.
func scanProgress(rows *sql.Rows) (chain.ProgressRecord, error) {
	var rec chain.ProgressRecord
	var reportDate, createdAt string
	var percent int64

	if err := rows.Scan(
		&rec.ID, &rec.ProjectID, &rec.Seq, &reportDate, &percent,
		&rec.ReportedBy, &rec.Remarks, &createdAt, &rec.PrevHash, &rec.RecordHash,
	); err != nil {
		return chain.ProgressRecord{}, fmt.Errorf("scan progress: %w", err)
	}

	date, err := canonical.ParseDate(reportDate)
	if err != nil {
		return chain.ProgressRecord{}, fmt.Errorf("scan progress: %w", err)
	}
	rec.ReportDate = date

	ts, err := canonical.ParseTime(createdAt)
	if err != nil {
		return chain.ProgressRecord{}, fmt.Errorf("scan progress: %w", err)
	}
	rec.CreatedAt = ts
	rec.ReportedPercent = canonical.Decimal(percent)

	return rec, nil
}

// scanProgressRow scans a single row into a ProgressRecord struct.
func scanProgressRow(row *sql.Row) (chain.ProgressRecord, error) {
	var rec chain.ProgressRecord
	var reportDate, createdAt string
	var percent int64

	if err := row.Scan(
		&rec.ID, &rec.ProjectID, &rec.Seq, &reportDate, &percent,
		&rec.ReportedBy, &rec.Remarks, &createdAt, &rec.PrevHash, &rec.RecordHash,
	); err != nil {
		return chain.ProgressRecord{}, fmt.Errorf("scan progress: %w", err)
	}

	date, err := canonical.ParseDate(reportDate)
	if err != nil {
		return chain.ProgressRecord{}, fmt.Errorf("scan progress: %w", err)
	}
	rec.ReportDate = date

	ts, err := canonical.ParseTime(createdAt)
	if err != nil {
		return chain.ProgressRecord{}, fmt.Errorf("scan progress: %w", err)
	}
	rec.CreatedAt = ts
	rec.ReportedPercent = canonical.Decimal(percent)

	return rec, nil
}

// scanAudit scans a row into an AuditRecord struct.
func scanAudit(rows *sql.Rows) (chain.AuditRecord, error) {
	var rec chain.AuditRecord
	var detailJSON, createdAt string

	if err := rows.Scan(
		&rec.ID, &rec.Seq, &rec.ActorID, &rec.Action, &rec.EntityType, &rec.EntityID,
		&detailJSON, &rec.IPAddress, &rec.UserAgent, &createdAt, &rec.PrevHash, &rec.RecordHash,
	); err != nil {
		return chain.AuditRecord{}, fmt.Errorf("scan audit: %w", err)
	}

	detail, err := unmarshalDetail(detailJSON)
	if err != nil {
		return chain.AuditRecord{}, err
	}
	rec.Detail = detail

	ts, err := canonical.ParseTime(createdAt)
	if err != nil {
		return chain.AuditRecord{}, fmt.Errorf("scan audit: %w", err)
	}
	rec.CreatedAt = ts

	return rec, nil
}

// scanAuditRow scans a single row into an AuditRecord struct.
func scanAuditRow(row *sql.Row) (chain.AuditRecord, error) {
	var rec chain.AuditRecord
	var detailJSON, createdAt string

	if err := row.Scan(
		&rec.ID, &rec.Seq, &rec.ActorID, &rec.Action, &rec.EntityType, &rec.EntityID,
		&detailJSON, &rec.IPAddress, &rec.UserAgent, &createdAt, &rec.PrevHash, &rec.RecordHash,
	); err != nil {
		return chain.AuditRecord{}, fmt.Errorf("scan audit: %w", err)
	}

	detail, err := unmarshalDetail(detailJSON)
	if err != nil {
		return chain.AuditRecord{}, err
	}
	rec.Detail = detail

	ts, err := canonical.ParseTime(createdAt)
	if err != nil {
		return chain.AuditRecord{}, fmt.Errorf("scan audit: %w", err)
	}
	rec.CreatedAt = ts

	return rec, nil
}
