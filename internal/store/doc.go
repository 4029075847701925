// Package store provides SQLite-backed storage for rewrite runs and for
// previewing compiled statements.
//
// The store keeps an append-only record of rewrite runs:
//   - Runs: one row per recorded rewrite run
//   - Documents: the rewritten documents of a run with their content hash
//   - Rewrites: every rewritten query, keyed by its content-derived ID
//   - Abandoned: queries the rewriter left untouched
//
// Entity tables for previews live in the same database and are created
// from record type definitions on demand.
//
// # Ordering
//
// Runs are ordered by seq INTEGER (a logical clock assigned on write),
// never by timestamps. Queries over run records always include
// ORDER BY seq ASC plus a BINARY collated tiebreaker, so the same
// database reads back identically.
//
// # Idempotency
//
// Writing a run whose ID already exists is a no-op. Rewrite IDs are
// derived from the document hash, the query location and the rewritten
// call (see internal/ir/hash.go), so re-recording an unchanged rewrite
// can be detected with HasRewrite.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
