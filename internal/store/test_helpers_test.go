package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/verist/sitechain/internal/canonical"
	"github.com/verist/sitechain/internal/chain"
)

// createTestStore creates a store backed by a temp file for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testTime returns a deterministic instant on the given January 2024 day.
func testTime(day int) canonical.Time {
	return canonical.TimeOf(time.Date(2024, time.January, day, 8, 30, 0, 0, time.UTC))
}

// seedProject inserts a project row so progress inserts pass the FK check.
func seedProject(t *testing.T, s *Store, id string) {
	t.Helper()
	inserted, err := s.CreateProject(context.Background(), chain.Project{
		ID:        id,
		Name:      "Test Project " + id,
		CreatedAt: testTime(1),
	})
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	if !inserted {
		t.Fatalf("CreateProject() did not insert %q", id)
	}
}

// createTestProgress creates a progress record with placeholder hashes.
// The store never recomputes hashes, so tests can use opaque values.
func createTestProgress(projectID string, seq int64, day int) chain.ProgressRecord {
	return chain.ProgressRecord{
		ID:              fmt.Sprintf("prog-%s-%d", projectID, seq),
		ProjectID:       projectID,
		Seq:             seq,
		ReportDate:      canonical.NewDate(2024, time.January, day),
		ReportedPercent: canonical.Decimal(seq * 1000),
		ReportedBy:      "engineer-1",
		Remarks:         "",
		CreatedAt:       testTime(day),
		PrevHash:        "",
		RecordHash:      fmt.Sprintf("hash-%d", seq),
	}
}

// createTestAudit creates an audit record with placeholder hashes.
func createTestAudit(seq int64, action string) chain.AuditRecord {
	return chain.AuditRecord{
		ID:         fmt.Sprintf("audit-%d", seq),
		Seq:        seq,
		ActorID:    "admin-1",
		Action:     action,
		EntityType: "project",
		EntityID:   "proj-1",
		Detail:     canonical.Object{},
		CreatedAt:  testTime(int(seq)),
		PrevHash:   "",
		RecordHash: fmt.Sprintf("ahash-%d", seq),
	}
}
