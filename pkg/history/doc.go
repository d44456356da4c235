// Package history keeps a ledger of bootstrap runs in a local SQLite
// database.
//
// Each `dotboot run` records its run id, start time, duration, exit code and
// the outcome of every stage. The ledger is written before the session
// handoff so it survives the process being replaced. Ledger failures are the
// caller's to log; they never change a run's exit code.
//
// The schema is managed with embedded golang-migrate migrations and the
// pure-Go modernc.org/sqlite driver, so no cgo toolchain is needed on a fresh
// machine.
package history
