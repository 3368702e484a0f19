package ledger

import (
	"context"

	"github.com/verist/sitechain/internal/chain"
)

// VerifyChain re-derives every record hash in a scope from stored fields
// and reports findings as data. One ordered SELECT supplies the records,
// so the walk sees a single consistent snapshot.
func (l *Ledger) VerifyChain(ctx context.Context, scope chain.Scope) (chain.VerificationResult, error) {
	if err := scope.Validate(); err != nil {
		return chain.VerificationResult{}, chain.NewValidationError(scope, err.Error())
	}

	switch scope.Kind {
	case chain.KindProgress:
		if err := l.requireProject(ctx, scope.ProjectID); err != nil {
			return chain.VerificationResult{}, err
		}
		records, err := l.store.ListProgress(ctx, scope.ProjectID)
		if err != nil {
			return chain.VerificationResult{}, chain.NewStorageError(scope, "list progress", err)
		}
		return chain.VerifyRecords(scope, progressChain(records))

	case chain.KindAudit:
		records, err := l.store.ListAudit(ctx, 0)
		if err != nil {
			return chain.VerificationResult{}, chain.NewStorageError(scope, "list audit", err)
		}
		return chain.VerifyRecords(scope, auditChain(records))

	default:
		return chain.VerificationResult{}, chain.NewValidationError(scope, "unknown chain kind")
	}
}

func progressChain(records []chain.ProgressRecord) []chain.ChainRecord {
	out := make([]chain.ChainRecord, len(records))
	for i, rec := range records {
		out[i] = rec
	}
	return out
}

func auditChain(records []chain.AuditRecord) []chain.ChainRecord {
	out := make([]chain.ChainRecord, len(records))
	for i, rec := range records {
		out[i] = rec
	}
	return out
}
