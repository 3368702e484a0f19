package auditq

import "github.com/verist/sitechain/internal/canonical"

// Predicate is one filter condition over the audit chain.
//
// This is a sealed interface: only types in this package implement it.
// The marker method prevents external implementations and lets the SQL
// compiler type-switch exhaustively, returning an error for any node it
// does not know rather than silently dropping a filter.
//
// Predicate types:
//   - ActionIs, ActorIs, EntityTypeIs, EntityIDIs: exact column equality
//   - CreatedAtOrAfter: inclusive lower time bound
//   - CreatedBefore: exclusive upper time bound
//   - And: conjunction, vacuously true when empty
type Predicate interface {
	predicateNode() // marker, seals the interface to this package
}

// ActionIs matches records whose action equals Action exactly.
// Actions are closed-vocabulary strings like "CREATE_PROJECT"; there is
// no prefix or pattern matching.
type ActionIs struct {
	Action string
}

func (ActionIs) predicateNode() {}

// ActorIs matches records written on behalf of one actor.
type ActorIs struct {
	ActorID string
}

func (ActorIs) predicateNode() {}

// EntityTypeIs matches records about one kind of entity, for example
// "project" or "progress_log".
type EntityTypeIs struct {
	EntityType string
}

func (EntityTypeIs) predicateNode() {}

// EntityIDIs matches records about one specific entity. Usually paired
// with EntityTypeIs, since IDs are only unique within a type.
type EntityIDIs struct {
	EntityID string
}

func (EntityIDIs) predicateNode() {}

// CreatedAtOrAfter matches records created at or after At.
//
// Together with CreatedBefore this forms the half-open window
// [from, to): the lower bound included, the upper excluded, so adjacent
// windows partition the chain with no record counted twice. The bound
// compares against the stored created_at text, which is safe because
// the fixed timestamp layout sorts lexicographically in time order.
type CreatedAtOrAfter struct {
	At canonical.Time
}

func (CreatedAtOrAfter) predicateNode() {}

// CreatedBefore matches records created strictly before At. This is the
// retention predicate: a purge dry-run counts records with CreatedBefore
// set to the cutoff, the same strict bound the delete applies.
type CreatedBefore struct {
	At canonical.Time
}

func (CreatedBefore) predicateNode() {}

// And matches records satisfying every predicate in Predicates. An
// empty conjunction is vacuously true and compiles to no filter.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
