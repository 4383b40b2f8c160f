package backend

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// DefaultProbeTimeout is the liveness probe timeout used when none is
// configured. It is deliberately small and independent of any backend's
// request timeout so an unreachable backend cannot stall dispatch.
const DefaultProbeTimeout = 2 * time.Second

// Prober performs cheap liveness checks against backends before a request is
// committed to them. A positive result is only an inexpensive filter, not a
// guarantee the forwarded request will succeed: the backend may fail between
// check and use.
type Prober struct {
	client  *http.Client
	timeout time.Duration
}

// NewProber creates a prober with the given probe timeout.
// A zero or negative timeout falls back to DefaultProbeTimeout.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Available reports whether the backend answers a lightweight request to its
// base URL within the probe timeout. Any HTTP response, including an error
// status, counts as alive: reachability is what is being measured here.
func (p *Prober) Available(ctx context.Context, b *Backend) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, b.BaseURL(), nil)
	if err != nil {
		slog.Warn("malformed backend base URL",
			"backend", b.Name(),
			"url", b.BaseURL(),
			"error", err,
		)
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Debug("backend probe failed",
			"backend", b.Name(),
			"error", err,
		)
		return false
	}
	defer resp.Body.Close()

	return true
}
