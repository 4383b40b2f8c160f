// Package metrics exposes Prometheus metrics for the proxy: request counts
// and latency per backend, live in-flight gauges, backend liveness, retry
// counts, and audit sink failures.
//
// The Collector's recording methods are nil-receiver safe so metrics can be
// wired optionally without nil checks at every call site.
package metrics
