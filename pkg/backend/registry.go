package backend

import (
	"fmt"
	"time"
)

// Config describes one backend entry from the configuration file.
type Config struct {
	Name    string
	URL     string
	Models  []string
	Timeout time.Duration
}

// Registry holds the configured backend pool. The pool is fixed for the
// process lifetime: backends that fail health checks are skipped per request,
// never removed. The first configured backend is the designated default for
// paths that are not model-routed.
type Registry struct {
	backends []*Backend
	byName   map[string]*Backend
}

// NewRegistry builds a registry from ordered backend configurations.
// At least one backend is required; names must be unique.
func NewRegistry(configs []Config) (*Registry, error) {
	if len(configs) == 0 {
		return nil, ErrNoBackends
	}

	r := &Registry{
		backends: make([]*Backend, 0, len(configs)),
		byName:   make(map[string]*Backend, len(configs)),
	}
	for _, c := range configs {
		if c.Name == "" {
			return nil, fmt.Errorf("backend with url %q has no name", c.URL)
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, &DuplicateBackendError{Name: c.Name}
		}
		b := New(c.Name, c.URL, c.Models, c.Timeout)
		r.backends = append(r.backends, b)
		r.byName[c.Name] = b
	}
	return r, nil
}

// All returns every configured backend in configured order.
func (r *Registry) All() []*Backend {
	out := make([]*Backend, len(r.backends))
	copy(out, r.backends)
	return out
}

// Capable returns the backends whose supported-model set contains model,
// preserving configured order. An empty result means no configured backend
// knows the model; callers decide whether that is fatal.
func (r *Registry) Capable(model string) []*Backend {
	var out []*Backend
	for _, b := range r.backends {
		if b.Supports(model) {
			out = append(out, b)
		}
	}
	return out
}

// Default returns the first configured backend.
func (r *Registry) Default() *Backend {
	return r.backends[0]
}

// Get returns the backend with the given name, or nil if not configured.
func (r *Registry) Get(name string) *Backend {
	return r.byName[name]
}

// Len returns the number of configured backends.
func (r *Registry) Len() int {
	return len(r.backends)
}

// Reserve atomically admits one request to b and returns the slot handle
// that must be released when the request finishes, success or failure.
func (r *Registry) Reserve(b *Backend) *Slot {
	b.inflight.Add(1)
	return &Slot{backend: b}
}

// LeastLoaded returns the backend with the smallest in-flight count from the
// given candidates, breaking ties by position (configured order) for
// determinism. Returns nil for an empty candidate list.
//
// The counters are read without a global lock: concurrent selections may race
// and pick the same backend. That is by contract — the counter is a
// best-effort load signal, not a strict queue.
func LeastLoaded(candidates []*Backend) *Backend {
	var best *Backend
	var bestLoad int64
	for _, b := range candidates {
		load := b.InFlight()
		if best == nil || load < bestLoad {
			best = b
			bestLoad = load
		}
	}
	return best
}
