// Package audit records structured access events for every proxied request:
// admissions, completions, failures, and rejected credentials.
//
// Records are append-only and written to an external sink. Two durable sinks
// are provided: a CSV file matching the historical access-log layout (a
// header row is written when the file is first created and re-created if the
// file disappears underneath the process, e.g. after external rotation), and
// a SQLite database whose schema is created on first open. A memory sink
// backs tests.
//
// All sinks are safe for concurrent use; writes are serialized so records
// from concurrent requests can never interleave inside one row.
package audit
