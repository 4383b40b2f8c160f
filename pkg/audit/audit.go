package audit

import "time"

// Event kinds recorded in the access log. The gen_* events cover model-routed
// requests; the unprefixed events cover mirrored requests to the default
// backend.
const (
	// EventGenRequest records the admission of a model-routed request to a
	// backend (its in-flight slot has just been reserved).
	EventGenRequest = "gen_request"

	// EventGenDone records the successful completion of a model-routed
	// request.
	EventGenDone = "gen_done"

	// EventGenError records a failed model-routed request against the
	// backend it was admitted to.
	EventGenError = "gen_error"

	// EventRequest records the admission of a mirrored request to the
	// default backend.
	EventRequest = "request"

	// EventDone records the successful completion of a mirrored request.
	EventDone = "done"

	// EventError records a failed mirrored request.
	EventError = "error"

	// EventRejected records a request refused for bad or missing
	// credentials. No backend is involved.
	EventRejected = "rejected"
)

// Access decision values.
const (
	AccessAuthorized = "Authorized"
	AccessDenied     = "Denied"
)

// NoServer is the server field value for records with no backend involved.
const NoServer = "None"

// Record is one access-log entry.
type Record struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Event is one of the Event* constants.
	Event string

	// User is the resolved user identity, or the best-effort raw token for
	// rejected requests.
	User string

	// ClientIP is the remote address of the client.
	ClientIP string

	// Access is AccessAuthorized or AccessDenied.
	Access string

	// Server is the backend name, or NoServer when none was involved.
	Server string

	// QueueDepth is the backend's in-flight count at log time, or -1 when
	// no backend was involved.
	QueueDepth int

	// Error is an optional short error description.
	Error string

	// RequestID correlates the record with server logs.
	RequestID string
}

// Recorder is an append-only sink for access records.
//
// Implementations must be safe for concurrent use. Record failures are
// reported to the caller but must never corrupt previously written records.
type Recorder interface {
	Record(rec Record) error
	Close() error
}

// NopRecorder discards all records. It stands in when auditing is disabled.
type NopRecorder struct{}

// Record discards the record.
func (NopRecorder) Record(Record) error { return nil }

// Close is a no-op.
func (NopRecorder) Close() error { return nil }
