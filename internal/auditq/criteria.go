package auditq

import (
	"fmt"

	"github.com/verist/sitechain/internal/canonical"
)

// Criteria is the flat filter form decoded from HTTP query parameters
// and CLI flags. Zero-value fields are not applied; the zero Criteria
// selects the whole chain.
type Criteria struct {
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	From       canonical.Time // inclusive lower bound on created_at
	To         canonical.Time // exclusive upper bound on created_at
	Limit      int64          // page size, <= 0 means unbounded
	Offset     int64          // rows to skip, applied only with a limit
}

// Predicate lowers the criteria to a predicate tree. Fields are lowered
// in a fixed order so equal criteria always compile to identical SQL.
// Returns nil when no filter field is set, which compiles to a query
// with no WHERE clause.
func (c Criteria) Predicate() Predicate {
	var preds []Predicate

	if c.Action != "" {
		preds = append(preds, ActionIs{Action: c.Action})
	}
	if c.EntityType != "" {
		preds = append(preds, EntityTypeIs{EntityType: c.EntityType})
	}
	if c.EntityID != "" {
		preds = append(preds, EntityIDIs{EntityID: c.EntityID})
	}
	if c.ActorID != "" {
		preds = append(preds, ActorIs{ActorID: c.ActorID})
	}
	if !c.From.IsZero() {
		preds = append(preds, CreatedAtOrAfter{At: c.From})
	}
	if !c.To.IsZero() {
		preds = append(preds, CreatedBefore{At: c.To})
	}

	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return And{Predicates: preds}
	}
}

// Validate rejects criteria no query should run with. A violation here
// is a caller mistake, reported up as a validation error rather than
// silently clamped.
func (c Criteria) Validate() error {
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}
	if c.Offset < 0 {
		return fmt.Errorf("offset must not be negative, got %d", c.Offset)
	}
	if c.Offset > 0 && c.Limit <= 0 {
		return fmt.Errorf("offset %d requires a positive limit", c.Offset)
	}
	if !c.From.IsZero() && !c.To.IsZero() && !c.From.Before(c.To) {
		return fmt.Errorf("empty time window: from %s is not before to %s", c.From, c.To)
	}
	return nil
}
