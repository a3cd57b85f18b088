// Package store provides SQLite-backed durable storage for pipeline runs
// and session feature tables.
//
// The store keeps three tables:
//   - runs: one metadata row per pipeline execution
//   - run_blocks: the block column layout recorded for each run
//   - session_features: the wide feature table, one row per global session
//
// session_features is created lazily by the first write because its block
// metric columns depend on the taxonomy in effect; later opens verify the
// stored layout against the taxonomy and refuse mismatched databases.
// Rows are keyed by (run_id, session_id) and written with INSERT OR
// REPLACE, so re-running a pipeline under the same run id converges to the
// same table.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
