// Package dispatch routes inbound requests to the backend best able to serve
// them and relays the response.
//
// For model-routed paths the dispatcher extracts the model identifier from
// the request, narrows the pool to the backends that support it, and walks
// that candidate set least-loaded-first: probe liveness, reserve an in-flight
// slot, forward with bounded retries, and fail over to the next candidate
// when a backend is down or exhausts its attempts. Every other path is
// mirrored to the default backend with no failover, since arbitrary paths
// are not known to be interchangeable across backends.
//
// Routing and admission errors are resolved here and surfaced to the client
// as an HTTP status with a short text body; nothing propagates past the
// dispatcher. Every reserved slot is released on every path, including probe
// failure, retry exhaustion, and client disconnect.
package dispatch
