// Package middleware provides the HTTP middleware chain for the proxy
// listener: panic recovery, request ID assignment, and request logging.
package middleware

// contextKey is a private type for context values set by this package.
type contextKey int

const (
	// requestIDKey stores the request's correlation ID.
	requestIDKey contextKey = iota

	// startTimeKey stores the request's arrival time.
	startTimeKey
)
