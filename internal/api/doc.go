// Package api serves the read-only progress endpoints of a running
// orchestrator: a live snapshot of the run and the checkpointed result of
// individual work units. It never mutates run state.
package api
