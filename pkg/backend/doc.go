// Package backend holds the pool of configured inference backends and the
// per-backend admission state used for load-aware routing.
//
// A Backend is created once at startup from configuration and lives for the
// whole process. Its in-flight counter is the load signal the dispatcher uses
// for least-loaded selection: it is incremented when a request is admitted via
// Registry.Reserve and decremented exactly once when the returned Slot is
// released. Counter reads are intentionally race-tolerant — two concurrent
// selections may observe the same value and both pick the same backend, which
// is acceptable for approximate fairness.
//
// The package also provides the Prober, a cheap short-timeout liveness check
// used to avoid spending a retry budget on a backend that is known to be down.
package backend
