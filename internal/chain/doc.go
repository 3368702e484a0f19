// Package chain defines the ledger's record types and the pure hash-chain
// computations over them.
//
// This package contains types and pure functions only: store persists chain
// records, ledger coordinates appends and verification. chain imports
// nothing internal except canonical, which keeps it the foundational layer
// with no circular dependencies.
//
// Key design constraints:
//   - a record hash commits to a fixed, documented field set per kind
//   - prev_hash absence is the empty string, never null and never omitted
//   - verification findings are data, never errors
//   - chain order is the ledger-assigned seq, never wall-clock order
package chain
