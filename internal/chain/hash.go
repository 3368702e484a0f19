package chain

import (
	"fmt"

	"github.com/verist/sitechain/internal/canonical"
)

// EmptyPrevHash is the sentinel for the first record of a scope. It is a
// real empty string in the canonical form, never null and never an omitted
// key: either of those would silently change the digest.
const EmptyPrevHash = ""

// ProgressHash computes the digest of a progress report.
//
// The form commits to exactly five fields. Remarks and created_at stay
// outside the digest; external verifiers reconstruct this object from the
// stored columns alone.
func ProgressHash(projectID string, percent canonical.Decimal, reportDate canonical.Date, reportedBy, prevHash string) (string, error) {
	h, err := canonical.SHA256Hex(canonical.Object{
		"project_id":       canonical.String(projectID),
		"reported_percent": percent,
		"report_date":      reportDate,
		"reported_by":      canonical.String(reportedBy),
		"prev_hash":        canonical.String(prevHash),
	})
	if err != nil {
		return "", fmt.Errorf("progress hash: %w", err)
	}
	return h, nil
}

// AuditHash computes the digest of an audit record.
//
// The structured detail blob canonicalizes recursively under key "payload".
// A nil detail hashes as the empty object, so detail-free actions do not
// need a placeholder.
func AuditHash(actorID, action, entityType, entityID string, detail canonical.Object, createdAt canonical.Time, prevHash string) (string, error) {
	if detail == nil {
		detail = canonical.Object{}
	}
	h, err := canonical.SHA256Hex(canonical.Object{
		"actor_id":    canonical.String(actorID),
		"action":      canonical.String(action),
		"entity_type": canonical.String(entityType),
		"entity_id":   canonical.String(entityID),
		"payload":     detail,
		"created_at":  createdAt,
		"prev_hash":   canonical.String(prevHash),
	})
	if err != nil {
		return "", fmt.Errorf("audit hash: %w", err)
	}
	return h, nil
}
