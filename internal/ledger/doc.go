// Package ledger coordinates appends, reads, verification, and retention
// for the hash chains in the store.
//
// The ledger is the only writer of chain records. Appends are serialized
// per scope (one progress chain per project, one global audit chain) by
// keyed mutexes, so within a process each chain grows one record at a
// time. Across processes the store's UNIQUE(seq) constraints backstop the
// locks: a seq collision surfaces as a unique violation and the append is
// retried against the new chain head.
//
// # Append Protocol
//
// Under the scope lock:
//  1. Read the chain head; prev_hash is its record_hash, "" for the
//     first record.
//  2. seq = MAX(seq)+1 from the store, never from an in-process counter.
//  3. Stamp created_at from the clock, compute the record hash over the
//     canonical form, insert.
//
// Timestamps, IDs, and hashes are assigned here exactly once; the store
// persists them verbatim and the verifier recomputes from the stored
// values.
package ledger
