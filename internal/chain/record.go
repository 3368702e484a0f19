package chain

import (
	"github.com/verist/sitechain/internal/canonical"
)

// Kind discriminates the two record variants. Each kind has its own table,
// its own canonical hash form, and its own chain scope rules.
type Kind string

const (
	// KindProgress is a physical-progress report against a project.
	KindProgress Kind = "progress"

	// KindAudit is an administrative action on the global audit trail.
	KindAudit Kind = "audit"
)

// ChainRecord is the view the verifier needs of any record: its identity,
// position, the two stored digests, and the ability to recompute the
// content digest from stored fields.
type ChainRecord interface {
	RecordID() string
	Sequence() int64
	StoredPrevHash() string
	StoredHash() string

	// ComputeHash recomputes the record's digest from its stored payload
	// and stored prev_hash. For an untampered record this equals
	// StoredHash().
	ComputeHash() (string, error)
}

// ProgressRecord is one physical-progress report. Immutable once created.
//
// Remarks and CreatedAt are stored metadata outside the digest; the hash
// form is pinned by ProgressHash.
type ProgressRecord struct {
	ID              string            `json:"id"`
	ProjectID       string            `json:"project_id"`
	Seq             int64             `json:"seq"`
	ReportDate      canonical.Date    `json:"report_date"`
	ReportedPercent canonical.Decimal `json:"reported_percent"`
	ReportedBy      string            `json:"reported_by"`
	Remarks         string            `json:"remarks"`
	CreatedAt       canonical.Time    `json:"created_at"`
	PrevHash        string            `json:"prev_hash"`
	RecordHash      string            `json:"record_hash"`
}

func (r ProgressRecord) RecordID() string       { return r.ID }
func (r ProgressRecord) Sequence() int64        { return r.Seq }
func (r ProgressRecord) StoredPrevHash() string { return r.PrevHash }
func (r ProgressRecord) StoredHash() string     { return r.RecordHash }

func (r ProgressRecord) ComputeHash() (string, error) {
	return ProgressHash(r.ProjectID, r.ReportedPercent, r.ReportDate, r.ReportedBy, r.PrevHash)
}

// Scope returns the record's chain scope.
func (r ProgressRecord) Scope() Scope {
	return ProgressScope(r.ProjectID)
}

// AuditRecord is one administrative action on the global chain. Immutable
// once created.
//
// IPAddress and UserAgent are request metadata outside the digest; the hash
// form is pinned by AuditHash.
type AuditRecord struct {
	ID         string           `json:"id"`
	Seq        int64            `json:"seq"`
	ActorID    string           `json:"actor_id"`
	Action     string           `json:"action"`
	EntityType string           `json:"entity_type"`
	EntityID   string           `json:"entity_id"`
	Detail     canonical.Object `json:"detail"`
	IPAddress  string           `json:"ip_address"`
	UserAgent  string           `json:"user_agent"`
	CreatedAt  canonical.Time   `json:"created_at"`
	PrevHash   string           `json:"prev_hash"`
	RecordHash string           `json:"record_hash"`
}

func (r AuditRecord) RecordID() string       { return r.ID }
func (r AuditRecord) Sequence() int64        { return r.Seq }
func (r AuditRecord) StoredPrevHash() string { return r.PrevHash }
func (r AuditRecord) StoredHash() string     { return r.RecordHash }

func (r AuditRecord) ComputeHash() (string, error) {
	return AuditHash(r.ActorID, r.Action, r.EntityType, r.EntityID, r.Detail, r.CreatedAt, r.PrevHash)
}

// Scope returns the record's chain scope.
func (r AuditRecord) Scope() Scope {
	return AuditScope()
}
