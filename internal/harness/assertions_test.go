package harness

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/chain"
	"github.com/verist/sitechain/internal/ledger"
	"github.com/verist/sitechain/internal/store"
	"github.com/verist/sitechain/internal/testutil"
)

// newAssertionContext builds a context over a fresh file-backed ledger:
// one registered project with two reports, so the audit chain holds
// CREATE_PROJECT plus two LOG_PROGRESS records.
func newAssertionContext(t *testing.T) *AssertionContext {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l := ledger.New(st,
		ledger.WithClock(testutil.NewDeterministicClock(clockEpoch, 0)),
		ledger.WithIDGenerator(testutil.NewSequentialIDGenerator("rec")),
	)

	ctx := context.Background()
	_, err = l.CreateProject(ctx, ledger.ProjectInput{
		ID: "bridge-a12", Name: "Bridge A12", ActorID: "admin-1",
	})
	require.NoError(t, err)

	for i, report := range []struct {
		date    string
		percent canonical.Decimal
	}{
		{"2024-05-28", 1000},
		{"2024-05-29", 3550},
	} {
		date, err := canonical.ParseDate(report.date)
		require.NoError(t, err)
		_, err = l.AppendProgress(ctx, ledger.ProgressInput{
			ProjectID:       "bridge-a12",
			ReportDate:      date,
			ReportedPercent: report.percent,
			ReportedBy:      "engineer-7",
		})
		require.NoError(t, err, "report %d", i)
	}

	return &AssertionContext{Ctx: ctx, Ledger: l, DB: db}
}

// tamperPercent edits a stored percent directly, bypassing the ledger.
func tamperPercent(t *testing.T, actx *AssertionContext, seq int64) {
	t.Helper()
	res, err := actx.DB.Exec(
		"UPDATE progress_logs SET reported_percent = ? WHERE project_id = ? AND seq = ?",
		9900, "bridge-a12", seq)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestAssertChainValid_Pass(t *testing.T) {
	actx := newAssertionContext(t)

	assert.NoError(t, assertChainValid(actx, Assertion{
		Type: AssertChainValid, Scope: "progress/bridge-a12",
	}))
	assert.NoError(t, assertChainValid(actx, Assertion{
		Type: AssertChainValid, Scope: "audit/global",
	}))
}

func TestAssertChainValid_FailsAfterTamper(t *testing.T) {
	actx := newAssertionContext(t)
	tamperPercent(t, actx, 1)

	err := assertChainValid(actx, Assertion{
		Type: AssertChainValid, Scope: "progress/bridge-a12",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HASH_MISMATCH")
}

func TestAssertChainValid_UnknownProject(t *testing.T) {
	actx := newAssertionContext(t)

	err := assertChainValid(actx, Assertion{
		Type: AssertChainValid, Scope: "progress/ghost-99",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify progress/ghost-99")
}

func TestAssertFindings(t *testing.T) {
	actx := newAssertionContext(t)
	tamperPercent(t, actx, 1)

	// The altered first record fails its digest; the second record's
	// stored prev_hash no longer matches the recomputed predecessor.
	assert.NoError(t, assertFindings(actx, Assertion{
		Type:  AssertFindings,
		Scope: "progress/bridge-a12",
		Findings: []ExpectedFinding{
			{Kind: "HASH_MISMATCH", Seq: 1},
			{Kind: "LINK_MISMATCH", Seq: 2},
		},
	}))

	err := assertFindings(actx, Assertion{
		Type:  AssertFindings,
		Scope: "progress/bridge-a12",
		Findings: []ExpectedFinding{
			{Kind: "HASH_MISMATCH", Seq: 1},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINK_MISMATCH@seq=2")
}

func TestAssertRecordCount(t *testing.T) {
	actx := newAssertionContext(t)

	assert.NoError(t, assertRecordCount(actx, Assertion{
		Type: AssertRecordCount, Table: "progress_logs",
		Where: map[string]any{"project_id": "bridge-a12"},
		Count: 2,
	}))
	assert.NoError(t, assertRecordCount(actx, Assertion{
		Type: AssertRecordCount, Table: "audit_logs", Count: 3,
	}))

	err := assertRecordCount(actx, Assertion{
		Type: AssertRecordCount, Table: "progress_logs", Count: 5,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 5 rows")
	assert.Contains(t, err.Error(), "got 2 rows")
}

func TestAssertRecordCount_RejectsHostileIdentifiers(t *testing.T) {
	actx := newAssertionContext(t)

	err := assertRecordCount(actx, Assertion{
		Type: AssertRecordCount, Table: "progress_logs; DROP TABLE projects", Count: 0,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")

	err = assertRecordCount(actx, Assertion{
		Type: AssertRecordCount, Table: "progress_logs",
		Where: map[string]any{"seq = 1 OR 1": 1},
		Count: 0,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid column name")
}

func TestAssertFinalState(t *testing.T) {
	actx := newAssertionContext(t)

	assert.NoError(t, assertFinalState(actx, Assertion{
		Type:  AssertFinalState,
		Table: "progress_logs",
		Where: map[string]any{"project_id": "bridge-a12", "seq": 2},
		Expect: map[string]any{
			"reported_percent": 3550,
			"reported_by":      "engineer-7",
			"report_date":      "2024-05-29",
			"remarks":          "",
		},
	}))
}

func TestAssertFinalState_WrongValue(t *testing.T) {
	actx := newAssertionContext(t)

	err := assertFinalState(actx, Assertion{
		Type:   AssertFinalState,
		Table:  "progress_logs",
		Where:  map[string]any{"project_id": "bridge-a12", "seq": 2},
		Expect: map[string]any{"reported_percent": 9999},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reported_percent = 9999")
	assert.Contains(t, err.Error(), "reported_percent = 3550")
}

func TestAssertFinalState_NoRows(t *testing.T) {
	actx := newAssertionContext(t)

	err := assertFinalState(actx, Assertion{
		Type:   AssertFinalState,
		Table:  "progress_logs",
		Where:  map[string]any{"project_id": "ghost-99"},
		Expect: map[string]any{"seq": 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rows matched")
}

func TestAssertFinalState_AmbiguousWhere(t *testing.T) {
	actx := newAssertionContext(t)

	// Two reports match project_id alone.
	err := assertFinalState(actx, Assertion{
		Type:   AssertFinalState,
		Table:  "progress_logs",
		Where:  map[string]any{"project_id": "bridge-a12"},
		Expect: map[string]any{"reported_by": "engineer-7"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple rows matched")
}

func TestAssertFinalState_UnknownColumn(t *testing.T) {
	actx := newAssertionContext(t)

	err := assertFinalState(actx, Assertion{
		Type:   AssertFinalState,
		Table:  "progress_logs",
		Where:  map[string]any{"project_id": "bridge-a12", "seq": 1},
		Expect: map[string]any{"no_such_column": "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "no_such_column"`)
}

func TestParseScope(t *testing.T) {
	scope, err := parseScope("progress/bridge-a12")
	require.NoError(t, err)
	assert.Equal(t, chain.ProgressScope("bridge-a12"), scope)

	scope, err = parseScope("audit/global")
	require.NoError(t, err)
	assert.Equal(t, chain.AuditScope(), scope)

	for _, bad := range []string{"", "progress", "progress/", "audit/bridge-a12", "ledger/global"} {
		_, err := parseScope(bad)
		assert.Error(t, err, "scope %q", bad)
	}
}

func TestBuildWhereClause(t *testing.T) {
	sql, args, err := buildWhereClause(map[string]any{
		"seq":        2,
		"project_id": "dam-c7",
	})
	require.NoError(t, err)
	assert.Equal(t, "project_id = ? AND seq = ?", sql)
	assert.Equal(t, []any{"dam-c7", 2}, args)

	sql, args, err = buildWhereClause(nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)

	_, _, err = buildWhereClause(map[string]any{"a OR b": 1})
	require.Error(t, err)
}

func TestStateValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"string match", "a", "a", true},
		{"string vs bytes", "a", []byte("a"), true},
		{"string mismatch", "a", "b", false},
		{"int vs int64", 5, int64(5), true},
		{"int64 vs int64", int64(5), int64(5), true},
		{"int mismatch", 5, int64(6), false},
		{"int vs string", 5, "5", false},
		{"bool vs one", true, int64(1), true},
		{"bool vs zero", false, int64(0), true},
		{"bool mismatch", true, int64(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateValuesEqual(tt.expected, tt.actual))
		})
	}
}

func TestEvaluateAssertions_CollectsAllFailures(t *testing.T) {
	actx := newAssertionContext(t)

	errs := EvaluateAssertions([]Assertion{
		{Type: AssertRecordCount, Table: "progress_logs", Count: 99},
		{Type: AssertChainValid, Scope: "progress/bridge-a12"},
		{Type: "bogus"},
	}, actx)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion 1:")
	assert.Contains(t, errs[1], "assertion 3:")
	assert.Contains(t, errs[1], "unknown assertion type")
}
