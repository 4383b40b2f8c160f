package backend

import (
	"errors"
	"fmt"
)

// Common backend pool errors that can be checked with errors.Is().
var (
	// ErrNoBackends is returned when the configuration contains no backends.
	ErrNoBackends = errors.New("no backends configured")

	// ErrDuplicateBackend is returned when two backends share a name.
	ErrDuplicateBackend = errors.New("duplicate backend name")
)

// DuplicateBackendError is returned when the configuration declares two
// backends with the same name.
type DuplicateBackendError struct {
	// Name is the duplicated backend name.
	Name string
}

// Error implements the error interface.
func (e *DuplicateBackendError) Error() string {
	return fmt.Sprintf("duplicate backend name %q", e.Name)
}

// Is implements error matching for errors.Is().
func (e *DuplicateBackendError) Is(target error) bool {
	return target == ErrDuplicateBackend
}
