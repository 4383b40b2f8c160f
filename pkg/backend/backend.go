package backend

import (
	"sync"
	"sync/atomic"
	"time"
)

// Backend is a single inference server the proxy can forward requests to.
// All fields except the in-flight counter are immutable after construction.
type Backend struct {
	name    string
	baseURL string
	timeout time.Duration

	// models is the set of model identifiers this backend can serve.
	models map[string]struct{}

	// modelList preserves the configured order for reporting.
	modelList []string

	// inflight counts requests currently admitted to this backend.
	inflight atomic.Int64
}

// New creates a backend from its configured identity.
func New(name, baseURL string, models []string, timeout time.Duration) *Backend {
	set := make(map[string]struct{}, len(models))
	list := make([]string, 0, len(models))
	for _, m := range models {
		if _, dup := set[m]; dup {
			continue
		}
		set[m] = struct{}{}
		list = append(list, m)
	}
	return &Backend{
		name:      name,
		baseURL:   baseURL,
		timeout:   timeout,
		models:    set,
		modelList: list,
	}
}

// Name returns the backend's unique configured name.
func (b *Backend) Name() string {
	return b.name
}

// BaseURL returns the network address requests are forwarded to.
func (b *Backend) BaseURL() string {
	return b.baseURL
}

// Timeout returns the per-attempt forwarding timeout for this backend.
// Zero means attempts are bounded only by the caller's context.
func (b *Backend) Timeout() time.Duration {
	return b.timeout
}

// Models returns the supported model identifiers in configured order.
func (b *Backend) Models() []string {
	out := make([]string, len(b.modelList))
	copy(out, b.modelList)
	return out
}

// Supports reports whether this backend can serve the given model.
func (b *Backend) Supports(model string) bool {
	_, ok := b.models[model]
	return ok
}

// InFlight returns the number of currently admitted requests. The value may
// be stale by the time the caller acts on it.
func (b *Backend) InFlight() int64 {
	return b.inflight.Load()
}

// Slot is a reservation of one admission on a backend. It must be released
// exactly once; Release is idempotent so deferred release on every code path
// is safe even when a path also releases eagerly.
type Slot struct {
	backend *Backend
	once    sync.Once
}

// Backend returns the backend this slot is held on.
func (s *Slot) Backend() *Backend {
	return s.backend
}

// Release returns the admission to the backend. Calling Release more than
// once has no effect, so the counter can never go negative.
func (s *Slot) Release() {
	s.once.Do(func() {
		s.backend.inflight.Add(-1)
	})
}
