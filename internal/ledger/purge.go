package ledger

import (
	"context"
	"log/slog"

	"github.com/verist/sitechain/internal/auditq"
	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/chain"
)

// PurgeInput describes a retention purge of the audit chain.
type PurgeInput struct {
	ActorID   string
	OlderThan canonical.Time
	DryRun    bool
	IPAddress string
	UserAgent string
}

// PurgeResult reports what a purge removed, or would remove for a dry run.
type PurgeResult struct {
	Removed int64          `json:"removed"`
	Cutoff  canonical.Time `json:"cutoff"`
	DryRun  bool           `json:"dry_run"`
}

// PurgeAudit deletes audit records older than the cutoff and writes a
// PURGE_AUDIT_LOGS record as the new activity on the chain. The audit lock
// is held across delete-plus-append so no other append interleaves.
//
// The retained window stays verifiable: the verifier never checks the first
// retained record's prev_hash.
func (l *Ledger) PurgeAudit(ctx context.Context, input PurgeInput) (PurgeResult, error) {
	scope := chain.AuditScope()

	if input.OlderThan.IsZero() {
		return PurgeResult{}, chain.NewValidationError(scope, "purge cutoff is required")
	}
	if !input.DryRun && input.ActorID == "" {
		return PurgeResult{}, chain.NewValidationError(scope, "actor id is required")
	}

	if input.DryRun {
		// Same strict upper bound the delete applies: created_at < cutoff.
		_, total, err := l.store.QueryAudit(ctx, auditq.Criteria{To: input.OlderThan})
		if err != nil {
			return PurgeResult{}, chain.NewStorageError(scope, "count purge candidates", err)
		}
		return PurgeResult{Removed: total, Cutoff: input.OlderThan, DryRun: true}, nil
	}

	unlock := l.locks.lock(scope.String())
	defer unlock()

	removed, err := l.store.PurgeAuditBefore(ctx, input.OlderThan)
	if err != nil {
		return PurgeResult{}, chain.NewStorageError(scope, "purge audit", err)
	}

	_, err = l.appendAuditLocked(ctx, AuditInput{
		ActorID:    input.ActorID,
		Action:     ActionPurgeAuditLogs,
		EntityType: "audit_chain",
		EntityID:   chain.GlobalAuditScopeID,
		Detail: canonical.Object{
			"cutoff":  input.OlderThan,
			"removed": canonical.Int(removed),
		},
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		slog.Error("purge audit trail write failed",
			"removed", removed,
			"error", err)
		return PurgeResult{}, chain.NewStorageError(scope, "purge audit trail (purge committed)", err)
	}

	slog.Info("audit chain purged",
		"removed", removed,
		"cutoff", input.OlderThan.String())
	return PurgeResult{Removed: removed, Cutoff: input.OlderThan, DryRun: false}, nil
}
