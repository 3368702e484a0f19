package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/verist/sitechain/internal/auditq"
	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/chain"
	"github.com/verist/sitechain/internal/store"
)

// Ledger owns all chain mutations and the derived read views.
//
// Thread-safety model:
//   - every method is safe from any goroutine
//   - appends to the same scope are serialized by scopeLocks
//   - reads never take scope locks; one SELECT is one snapshot
type Ledger struct {
	store *store.Store
	clock Clock
	ids   IDGenerator
	locks *scopeLocks
}

// Option allows configuration of ledger parameters.
type Option func(*Ledger)

// WithClock replaces the wall clock. Tests use a deterministic clock so
// created_at values (and therefore record hashes) are reproducible.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithIDGenerator replaces the record ID source.
func WithIDGenerator(g IDGenerator) Option {
	return func(l *Ledger) {
		l.ids = g
	}
}

// New creates a Ledger over an open store.
// Defaults: system wall clock, UUIDv7 record IDs.
func New(s *store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: s,
		clock: systemClock{},
		ids:   UUIDv7Generator{},
		locks: newScopeLocks(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Store exposes the underlying store for health checks.
func (l *Ledger) Store() *store.Store {
	return l.store
}

// GetProject returns one registry row.
// Returns ScopeNotFoundError if the project does not exist.
func (l *Ledger) GetProject(ctx context.Context, projectID string) (chain.Project, error) {
	p, err := l.store.GetProject(ctx, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return chain.Project{}, chain.NewScopeNotFoundError(chain.ProgressScope(projectID))
	}
	if err != nil {
		return chain.Project{}, chain.NewStorageError(chain.ProgressScope(projectID), "get project", err)
	}
	return p, nil
}

// ListProjects returns every registry row.
func (l *Ledger) ListProjects(ctx context.Context) ([]chain.Project, error) {
	projects, err := l.store.ListProjects(ctx)
	if err != nil {
		return nil, chain.NewStorageError(chain.AuditScope(), "list projects", err)
	}
	return projects, nil
}

// GetLatest returns the head of a project's progress chain.
// found is false when the project exists but has no reports yet.
func (l *Ledger) GetLatest(ctx context.Context, projectID string) (rec chain.ProgressRecord, found bool, err error) {
	scope := chain.ProgressScope(projectID)

	if err := l.requireProject(ctx, projectID); err != nil {
		return chain.ProgressRecord{}, false, err
	}

	rec, found, err = l.store.LatestProgress(ctx, projectID)
	if err != nil {
		return chain.ProgressRecord{}, false, chain.NewStorageError(scope, "latest progress", err)
	}
	return rec, found, nil
}

// ProgressEntry is one history row annotated with recomputed hash validity.
// HashValid covers the record's own content only; broken links between
// records are the verifier's concern.
type ProgressEntry struct {
	chain.ProgressRecord
	HashValid bool `json:"hash_valid"`
}

// History returns a project's progress chain in order, each record checked
// against its recomputed hash.
func (l *Ledger) History(ctx context.Context, projectID string) ([]ProgressEntry, error) {
	scope := chain.ProgressScope(projectID)

	if err := l.requireProject(ctx, projectID); err != nil {
		return nil, err
	}

	records, err := l.store.ListProgress(ctx, projectID)
	if err != nil {
		return nil, chain.NewStorageError(scope, "list progress", err)
	}

	entries := make([]ProgressEntry, len(records))
	for i, rec := range records {
		computed, err := rec.ComputeHash()
		if err != nil {
			return nil, chain.NewStorageError(scope, "recompute hash", err)
		}
		entries[i] = ProgressEntry{
			ProgressRecord: rec,
			HashValid:      computed == rec.RecordHash,
		}
	}

	return entries, nil
}

// GetAudit returns one audit record by ID.
// found is false when no record has that ID.
func (l *Ledger) GetAudit(ctx context.Context, id string) (rec chain.AuditRecord, found bool, err error) {
	rec, err = l.store.GetAuditByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return chain.AuditRecord{}, false, nil
	}
	if err != nil {
		return chain.AuditRecord{}, false, chain.NewStorageError(chain.AuditScope(), "get audit", err)
	}
	return rec, true, nil
}

// QueryAudit returns one page of filtered audit records, newest first,
// plus the total match count. Malformed criteria (negative limit, empty
// time window) are validation errors, not storage errors.
func (l *Ledger) QueryAudit(ctx context.Context, c auditq.Criteria) ([]chain.AuditRecord, int64, error) {
	if err := c.Validate(); err != nil {
		return nil, 0, chain.NewValidationError(chain.AuditScope(), err.Error())
	}
	records, total, err := l.store.QueryAudit(ctx, c)
	if err != nil {
		return nil, 0, chain.NewStorageError(chain.AuditScope(), "query audit", err)
	}
	return records, total, nil
}

// EntityHistory returns the audit trail for one entity in chain order.
func (l *Ledger) EntityHistory(ctx context.Context, entityType, entityID string) ([]chain.AuditRecord, error) {
	if entityType == "" || entityID == "" {
		return nil, chain.NewValidationError(chain.AuditScope(), "entity type and id are required")
	}
	records, err := l.store.EntityAudit(ctx, entityType, entityID)
	if err != nil {
		return nil, chain.NewStorageError(chain.AuditScope(), "entity audit", err)
	}
	return records, nil
}

// AuditStats summarizes the audit chain for dashboards.
type AuditStats struct {
	Total        int64                   `json:"total"`
	ByAction     []store.ActionCount     `json:"by_action"`
	ByEntityType []store.EntityTypeCount `json:"by_entity_type"`
	ByActor      []store.ActorCount      `json:"by_actor"`
}

// Stats returns record counts for the audit chain.
func (l *Ledger) Stats(ctx context.Context) (AuditStats, error) {
	scope := chain.AuditScope()

	total, err := l.store.CountAudit(ctx)
	if err != nil {
		return AuditStats{}, chain.NewStorageError(scope, "count audit", err)
	}
	byAction, err := l.store.ActionStats(ctx)
	if err != nil {
		return AuditStats{}, chain.NewStorageError(scope, "action stats", err)
	}
	byEntityType, err := l.store.EntityTypeStats(ctx)
	if err != nil {
		return AuditStats{}, chain.NewStorageError(scope, "entity type stats", err)
	}
	byActor, err := l.store.ActorStats(ctx)
	if err != nil {
		return AuditStats{}, chain.NewStorageError(scope, "actor stats", err)
	}

	return AuditStats{
		Total:        total,
		ByAction:     byAction,
		ByEntityType: byEntityType,
		ByActor:      byActor,
	}, nil
}

// Timeline buckets accepted by Timeline.
const (
	TimelineHour  = "hour"
	TimelineDay   = "day"
	TimelineWeek  = "week"
	TimelineMonth = "month"
)

// Timeline returns audit record counts grouped into time buckets of the
// given granularity, oldest first. From is inclusive, To exclusive; a
// zero bound leaves that side open. A From at or past To is rejected.
func (l *Ledger) Timeline(ctx context.Context, bucket string, from, to canonical.Time) ([]store.TimeBucketCount, error) {
	scope := chain.AuditScope()

	switch bucket {
	case TimelineHour, TimelineDay, TimelineWeek, TimelineMonth:
	default:
		return nil, chain.NewValidationError(scope, "bucket must be one of hour, day, week, month")
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, chain.NewValidationError(scope, "from must be before to")
	}

	buckets, err := l.store.TimelineStats(ctx, bucket, from, to)
	if err != nil {
		return nil, chain.NewStorageError(scope, "timeline stats", err)
	}
	return buckets, nil
}

// Export returns up to limit audit records in chain order.
// limit <= 0 exports the full chain.
func (l *Ledger) Export(ctx context.Context, limit int64) ([]chain.AuditRecord, error) {
	records, err := l.store.ListAudit(ctx, limit)
	if err != nil {
		return nil, chain.NewStorageError(chain.AuditScope(), "export audit", err)
	}
	return records, nil
}

// requireProject maps a missing registry row to ScopeNotFoundError.
func (l *Ledger) requireProject(ctx context.Context, projectID string) error {
	scope := chain.ProgressScope(projectID)

	exists, err := l.store.ProjectExists(ctx, projectID)
	if err != nil {
		return chain.NewStorageError(scope, "check project", err)
	}
	if !exists {
		return chain.NewScopeNotFoundError(scope)
	}
	return nil
}
