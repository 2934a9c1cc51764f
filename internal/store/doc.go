// Package store is the SQLite build journal.
//
// The journal records, per run:
//   - Runs: mode, target, profile, final status, image digest, manifest hash
//   - Steps: one row per spawned process
//   - Artifacts: one row per produced file, with its content-addressed id
//
// Rows within a run are keyed and ordered by seq, the pipeline's logical
// clock. Writes use ON CONFLICT DO NOTHING, so replaying a run's records is
// harmless.
//
// The journal is an audit trail only. Builds never read it and it does not
// make them incremental.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
