// Package harness runs YAML-defined conformance scenarios against a real
// ledger.
//
// A scenario is a sequence of ledger operations (register a project,
// report progress, append audit events, purge) plus assertions over the
// outcome: per-step success or a specific error code, chain verification
// results, and final database state. Scenarios exercise the same code
// paths production traffic does; nothing is mocked and no outcome is
// manufactured. Tamper steps edit stored rows through a maintenance
// connection behind the ledger's back, which is how the verification
// scenarios plant the corruption they then expect to be found.
//
// # Determinism
//
// Every run is bit-for-bit reproducible:
//   - each scenario runs in a fresh temporary database
//   - the clock is frozen at a fixed epoch; scenarios move it explicitly
//     with clock.set steps, so every created_at is spelled out in the
//     scenario file
//   - record IDs come from a sequential generator (rec-0001, rec-0002, ...)
//
// # Golden traces
//
// A run produces a trace of invoke and complete events that can be pinned
// with golden files (canonical JSON, one file per scenario). Traces
// record operations, arguments, outcomes, error codes, and assigned
// sequence numbers. They deliberately exclude record hashes: digests are
// opaque to review in a fixture, and chain integrity is asserted through
// real verification (chain_valid and findings assertions), not snapshot
// comparison.
package harness
