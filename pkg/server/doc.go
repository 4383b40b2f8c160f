// Package server runs the client-facing HTTP listener: one concurrent
// handler per connection, a middleware chain (recovery, request ID, request
// logging), credential checking, and hand-off to the dispatcher. A second,
// optional listener exposes Prometheus metrics so the proxy listener can
// keep mirroring every path upstream.
package server
