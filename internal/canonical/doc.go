// Package canonical produces the deterministic serialization used as
// hash-chain digest input.
//
// Every implementation that must agree on a record hash (backend,
// verification clients, mobile) follows the same rules bit for bit:
//   - object keys sorted by UTF-16 code units (RFC 8785)
//   - no insignificant whitespace
//   - strings NFC normalized, HTML escaping disabled
//   - decimals as fixed-precision text, never binary floats
//   - dates and timestamps in fixed-width UTC layouts
//   - no null anywhere: absence is always the empty string
package canonical
