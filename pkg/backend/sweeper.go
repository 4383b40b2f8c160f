package backend

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically probes every backend in the registry and remembers the
// last observed liveness. It exists for observability (the backend_up metric
// and recovery logging); dispatch always uses its own synchronous probe, so a
// stale sweep result can never route a request.
type Sweeper struct {
	registry *Registry
	prober   *Prober
	interval time.Duration

	// onResult, when set, is invoked after each individual probe.
	onResult func(b *Backend, up bool)

	mu   sync.RWMutex
	up   map[string]bool
	done chan struct{}
}

// NewSweeper creates a sweeper over the registry's backends.
// A zero or negative interval disables sweeping (Start becomes a no-op).
func NewSweeper(registry *Registry, prober *Prober, interval time.Duration, onResult func(b *Backend, up bool)) *Sweeper {
	return &Sweeper{
		registry: registry,
		prober:   prober,
		interval: interval,
		onResult: onResult,
		up:       make(map[string]bool),
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep loop. It returns immediately; the loop
// runs until the context is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	go s.run(ctx)
}

// Stop terminates the sweep loop.
func (s *Sweeper) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// Up returns the last swept liveness for the named backend. Backends that
// have not been swept yet report true, matching the optimistic start the
// dispatcher's synchronous probe will correct on first use.
func (s *Sweeper) Up(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	up, seen := s.up[name]
	return !seen || up
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("backend health sweeper started",
		"interval", s.interval,
		"backends", s.registry.Len(),
	)

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("health sweeper stopped (context cancelled)")
			return
		case <-s.done:
			slog.Debug("health sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	for _, b := range s.registry.All() {
		up := s.prober.Available(ctx, b)

		s.mu.Lock()
		was, seen := s.up[b.Name()]
		s.up[b.Name()] = up
		s.mu.Unlock()

		if s.onResult != nil {
			s.onResult(b, up)
		}

		switch {
		case seen && was && !up:
			slog.Warn("backend went down", "backend", b.Name())
		case seen && !was && up:
			slog.Info("backend recovered", "backend", b.Name())
		}
	}
}
