// Package auditq defines the filter language for audit-trail queries.
//
// A query arrives as flat Criteria (decoded from HTTP query parameters
// or CLI flags) and is lowered to a small predicate tree. The tree is
// the contract between callers and the SQL compiler: every predicate
// type here has exactly one SQL rendering, so the same criteria always
// produce the same statement and the same parameter order.
//
// The fragment is deliberately narrow. Only equality filters, a
// half-open time window, and conjunction exist; there is no OR, no
// negation, and no free-text matching. Narrow filters keep the compiled
// SQL auditable and keep pagination totals consistent with page
// contents.
package auditq
