package chain

import "fmt"

// GlobalAuditScopeID is the fixed scope identifier of the audit chain.
// Every audit record links into this one system-wide chain.
const GlobalAuditScopeID = "global"

// Scope identifies one hash chain: a per-project chain for progress
// records, or the single global chain for audit records. The zero Scope is
// invalid.
type Scope struct {
	Kind      Kind
	ProjectID string // set for progress scopes only
}

// ProgressScope returns the chain scope for one project's progress reports.
func ProgressScope(projectID string) Scope {
	return Scope{Kind: KindProgress, ProjectID: projectID}
}

// AuditScope returns the global audit chain scope.
func AuditScope() Scope {
	return Scope{Kind: KindAudit}
}

// ResolveScope maps a record kind and raw scope input to its chain scope.
// Progress requires a project identifier; audit ignores the input and
// normalizes to the global scope.
func ResolveScope(kind Kind, projectID string) (Scope, error) {
	switch kind {
	case KindProgress:
		if projectID == "" {
			return Scope{}, fmt.Errorf("progress scope requires a project id")
		}
		return ProgressScope(projectID), nil
	case KindAudit:
		return AuditScope(), nil
	default:
		return Scope{}, fmt.Errorf("invalid record kind %q: must be progress or audit", kind)
	}
}

// Validate checks that the scope is well formed.
func (s Scope) Validate() error {
	switch s.Kind {
	case KindProgress:
		if s.ProjectID == "" {
			return fmt.Errorf("progress scope requires a project id")
		}
		return nil
	case KindAudit:
		if s.ProjectID != "" {
			return fmt.Errorf("audit scope carries no project id")
		}
		return nil
	default:
		return fmt.Errorf("invalid record kind %q", s.Kind)
	}
}

// String renders the scope key used in locks, logs, and error messages:
// "progress/<project>" or "audit/global".
func (s Scope) String() string {
	if s.Kind == KindAudit {
		return string(KindAudit) + "/" + GlobalAuditScopeID
	}
	return string(s.Kind) + "/" + s.ProjectID
}
