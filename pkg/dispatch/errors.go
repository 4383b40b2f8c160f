package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// Common dispatch errors that can be checked with errors.Is().
var (
	// ErrMissingModel is returned when a model-routed request carries no
	// model identifier in its body or query parameters.
	ErrMissingModel = errors.New("missing 'model' in request")

	// ErrNoCapableBackend is returned when no configured backend supports
	// the requested model.
	ErrNoCapableBackend = errors.New("no capable backend for model")

	// ErrAllCandidatesFailed is returned when every capable backend was
	// down or exhausted its retry budget.
	ErrAllCandidatesFailed = errors.New("all candidate backends failed")

	// ErrAttemptsExhausted is returned when a single backend failed every
	// forwarding attempt.
	ErrAttemptsExhausted = errors.New("forwarding attempts exhausted")
)

// NoCapableBackendError is returned when the routing key matches no
// configured backend's model set.
type NoCapableBackendError struct {
	// Model is the requested model.
	Model string
}

// Error implements the error interface.
func (e *NoCapableBackendError) Error() string {
	return fmt.Sprintf("no backend is configured for model %q", e.Model)
}

// Is implements error matching for errors.Is().
func (e *NoCapableBackendError) Is(target error) bool {
	return target == ErrNoCapableBackend
}

// AttemptsExhaustedError is returned by the forwarder when a backend failed
// every attempt with a transport error or timeout.
type AttemptsExhaustedError struct {
	// Backend is the backend that was tried.
	Backend string

	// Attempts is how many attempts were made.
	Attempts int

	// LastErr is the error from the final attempt.
	LastErr error
}

// Error implements the error interface.
func (e *AttemptsExhaustedError) Error() string {
	return fmt.Sprintf("backend %q failed all %d attempts: %v", e.Backend, e.Attempts, e.LastErr)
}

// Is implements error matching for errors.Is().
func (e *AttemptsExhaustedError) Is(target error) bool {
	return target == ErrAttemptsExhausted
}

// Unwrap returns the wrapped error for error chain traversal.
func (e *AttemptsExhaustedError) Unwrap() error {
	return e.LastErr
}

// AllCandidatesFailedError is returned when the candidate set empties without
// a successful forward.
type AllCandidatesFailedError struct {
	// Model is the requested model.
	Model string

	// Attempted are the backends tried, in order.
	Attempted []string

	// LastErr is the error from the last attempted backend, if any.
	LastErr error
}

// Error implements the error interface.
func (e *AllCandidatesFailedError) Error() string {
	msg := fmt.Sprintf("all backends failed for model %q (attempted: %s)",
		e.Model, strings.Join(e.Attempted, ", "))
	if e.LastErr != nil {
		msg += fmt.Sprintf(": %v", e.LastErr)
	}
	return msg
}

// Is implements error matching for errors.Is().
func (e *AllCandidatesFailedError) Is(target error) bool {
	return target == ErrAllCandidatesFailed
}

// Unwrap returns the wrapped error for error chain traversal.
func (e *AllCandidatesFailedError) Unwrap() error {
	return e.LastErr
}
