package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/chain"
)

// seedAuditDays writes one audit record on each given June 2024 day.
func seedAuditDays(t *testing.T, l *Ledger, clock interface{ Set(time.Time) }, days ...int) {
	t.Helper()
	for _, day := range days {
		clock.Set(time.Date(2024, time.June, day, 12, 0, 0, 0, time.UTC))
		_, err := l.AppendAudit(context.Background(), AuditInput{
			ActorID:    "admin-1",
			Action:     "CREATE_PROJECT",
			EntityType: "project",
			EntityID:   "proj-1",
		})
		require.NoError(t, err)
	}
}

func cutoffAt(day int) canonical.Time {
	return canonical.TimeOf(time.Date(2024, time.June, day, 0, 0, 0, 0, time.UTC))
}

func TestPurgeAudit_RemovesOlderThanCutoff(t *testing.T) {
	l, clock, _ := setupLedger(t)
	ctx := context.Background()
	seedAuditDays(t, l, clock, 1, 10, 20)

	result, err := l.PurgeAudit(ctx, PurgeInput{
		ActorID:   "admin-1",
		OlderThan: cutoffAt(15),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Removed)
	assert.False(t, result.DryRun)

	// Day 20 survives, plus the purge's own trail record.
	records, err := l.Export(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "CREATE_PROJECT", records[0].Action)
	assert.Equal(t, ActionPurgeAuditLogs, records[1].Action)
}

func TestPurgeAudit_TrailRecord(t *testing.T) {
	l, clock, _ := setupLedger(t)
	ctx := context.Background()
	seedAuditDays(t, l, clock, 1, 10, 20)

	_, err := l.PurgeAudit(ctx, PurgeInput{ActorID: "admin-1", OlderThan: cutoffAt(15)})
	require.NoError(t, err)

	head, found, err := l.Store().LatestAudit(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ActionPurgeAuditLogs, head.Action)
	assert.Equal(t, "admin-1", head.ActorID)
	assert.Equal(t, "audit_chain", head.EntityType)
	assert.Equal(t, chain.GlobalAuditScopeID, head.EntityID)
	assert.Equal(t, canonical.String(cutoffAt(15).String()), head.Detail["cutoff"])
	assert.Equal(t, canonical.Int(2), head.Detail["removed"])
}

// TestPurgeAudit_RetainedChainVerifies is the retention contract: the first
// retained record keeps a prev_hash that points at a deleted predecessor,
// and verification accepts it because first-record links are never checked.
func TestPurgeAudit_RetainedChainVerifies(t *testing.T) {
	l, clock, _ := setupLedger(t)
	ctx := context.Background()
	seedAuditDays(t, l, clock, 1, 10, 20)

	_, err := l.PurgeAudit(ctx, PurgeInput{ActorID: "admin-1", OlderThan: cutoffAt(15)})
	require.NoError(t, err)

	records, err := l.Export(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// The dangling reference to the purged predecessor is preserved, not
	// rewritten.
	assert.NotEqual(t, chain.EmptyPrevHash, records[0].PrevHash)
	// The trail record links to the retained head.
	assert.Equal(t, records[0].RecordHash, records[1].PrevHash)

	result, err := l.VerifyChain(ctx, chain.AuditScope())
	require.NoError(t, err)
	assert.True(t, result.ChainValid)
	assert.Equal(t, 2, result.RecordsChecked)
}

func TestPurgeAudit_FullPurgeRestartsChain(t *testing.T) {
	l, clock, _ := setupLedger(t)
	ctx := context.Background()
	seedAuditDays(t, l, clock, 1, 2, 3)

	result, err := l.PurgeAudit(ctx, PurgeInput{ActorID: "admin-1", OlderThan: cutoffAt(15)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Removed)

	records, err := l.Export(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ActionPurgeAuditLogs, records[0].Action)
	assert.Equal(t, int64(1), records[0].Seq)
	assert.Equal(t, chain.EmptyPrevHash, records[0].PrevHash)

	verification, err := l.VerifyChain(ctx, chain.AuditScope())
	require.NoError(t, err)
	assert.True(t, verification.ChainValid)
}

func TestPurgeAudit_DryRun(t *testing.T) {
	l, clock, _ := setupLedger(t)
	ctx := context.Background()
	seedAuditDays(t, l, clock, 1, 10, 20)

	result, err := l.PurgeAudit(ctx, PurgeInput{OlderThan: cutoffAt(15), DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Removed)
	assert.True(t, result.DryRun)

	// Nothing deleted, no trail record.
	records, err := l.Export(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestPurgeAudit_CutoffIsExclusive(t *testing.T) {
	l, clock, _ := setupLedger(t)
	ctx := context.Background()
	seedAuditDays(t, l, clock, 10)

	records, err := l.Export(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// A record created exactly at the cutoff instant is retained.
	result, err := l.PurgeAudit(ctx, PurgeInput{
		ActorID:   "admin-1",
		OlderThan: records[0].CreatedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Removed)
}

func TestPurgeAudit_Validation(t *testing.T) {
	l, _, _ := setupLedger(t)
	ctx := context.Background()

	_, err := l.PurgeAudit(ctx, PurgeInput{ActorID: "admin-1"})
	assert.True(t, chain.IsValidationError(err), "zero cutoff: got %v", err)

	_, err = l.PurgeAudit(ctx, PurgeInput{OlderThan: cutoffAt(1)})
	assert.True(t, chain.IsValidationError(err), "missing actor: got %v", err)
}
