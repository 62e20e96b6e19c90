// Package checkpoint is the durable record of which work units are finished.
//
// A Checkpoint is loaded once before a run starts and then only grows: each
// finished unit is merged exactly once and persisted immediately through a
// Store, so a crash loses at most the units that were in flight. Stores are
// swappable (append-only file, PostgreSQL, S3-compatible object storage)
// without touching orchestration logic.
package checkpoint
