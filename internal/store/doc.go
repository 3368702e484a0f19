// Package store provides SQLite-backed durable storage for the sitechain
// ledger.
//
// The store holds three tables:
//   - Projects: registry rows that scope progress chains
//   - Progress Logs: one hash chain per project
//   - Audit Logs: the single global administrative chain
//
// # Critical Patterns
//
// Duplicate Detection Without Error Parsing
//   - UNIQUE(project_id, report_date) with ON CONFLICT DO NOTHING
//   - Callers observe RowsAffected instead of matching driver errors
//
// Logical Identity and Time
//   - All chain ordering uses seq INTEGER, NEVER timestamps
//   - created_at is stored metadata; it never decides chain order
//
// Deterministic Query Results
//   - Chain reads always include: ORDER BY seq ASC, id COLLATE BINARY ASC
//   - Verification over the same data always walks the same sequence
//
// Stored Bytes Are Hashed Bytes
//   - Timestamps are TEXT in the exact layouts the hash forms use
//   - The audit detail column is canonical JSON per RFC 8785
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Record hashes are computed before insert by the ledger via functions in
// internal/chain using RFC 8785 canonical JSON and SHA-256.
package store
