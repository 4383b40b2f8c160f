package dispatch

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"switchyard-hq/switchyard/pkg/backend"
	"switchyard-hq/switchyard/pkg/telemetry/metrics"
)

// DefaultMaxAttempts is the per-candidate forwarding attempt budget used
// when none is configured.
const DefaultMaxAttempts = 3

// ForwardRequest is the upstream-facing shape of an inbound request: the
// original method, path, query, headers (minus Authorization) and body,
// ready to be replayed against any backend.
type ForwardRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// NewForwardRequest builds a ForwardRequest from an inbound request whose
// body has already been read. The Authorization header is stripped: the
// client's proxy credential must not leak upstream. Content-Length is
// dropped too since the transport recomputes it from the replayed body.
func NewForwardRequest(r *http.Request, body []byte) *ForwardRequest {
	header := r.Header.Clone()
	header.Del("Authorization")
	header.Del("Content-Length")
	return &ForwardRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   header,
		Body:     body,
	}
}

// Forwarder replays requests against backends with a bounded per-candidate
// retry budget.
type Forwarder struct {
	client      *http.Client
	maxAttempts int
	collector   *metrics.Collector
}

// NewForwarder creates a forwarder. A non-positive maxAttempts falls back to
// DefaultMaxAttempts. The collector may be nil.
func NewForwarder(maxAttempts int, collector *metrics.Collector) *Forwarder {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Forwarder{
		// Per-attempt deadlines come from each backend's configured
		// timeout via context, so the client itself carries none.
		client:      &http.Client{},
		maxAttempts: maxAttempts,
		collector:   collector,
	}
}

// Forward sends the request to b, retrying transport failures and timeouts
// up to the attempt budget. Any HTTP response, whatever its status, is the
// final answer and is never retried.
//
// On success the returned cancel function must be called once the response
// body has been fully consumed; it releases the attempt's timeout context,
// which deliberately stays alive while the body streams so the backend's
// timeout bounds the whole request.
func (f *Forwarder) Forward(ctx context.Context, b *backend.Backend, fr *ForwardRequest) (*http.Response, context.CancelFunc, error) {
	url := b.BaseURL() + fr.Path
	if fr.RawQuery != "" {
		url += "?" + fr.RawQuery
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		// The client vanished or the process is shutting down; further
		// attempts are pointless.
		if ctx.Err() != nil {
			if lastErr == nil {
				lastErr = ctx.Err()
			}
			break
		}

		if attempt > 1 {
			f.collector.IncRetry(b.Name())
		}

		var attemptCtx context.Context
		var cancel context.CancelFunc
		if timeout := b.Timeout(); timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		} else {
			attemptCtx, cancel = context.WithCancel(ctx)
		}

		var bodyReader io.Reader
		if fr.Body != nil {
			bodyReader = bytes.NewReader(fr.Body)
		}
		req, err := http.NewRequestWithContext(attemptCtx, fr.Method, url, bodyReader)
		if err != nil {
			cancel()
			return nil, nil, err
		}
		req.Header = fr.Header.Clone()

		start := time.Now()
		resp, err := f.client.Do(req)
		if err != nil {
			cancel()
			lastErr = err
			slog.Warn("forwarding attempt failed",
				"backend", b.Name(),
				"attempt", attempt,
				"max_attempts", f.maxAttempts,
				"elapsed", time.Since(start),
				"error", err,
			)
			continue
		}

		slog.Debug("upstream responded",
			"backend", b.Name(),
			"status", resp.StatusCode,
			"attempt", attempt,
			"elapsed", time.Since(start),
		)
		return resp, cancel, nil
	}

	return nil, nil, &AttemptsExhaustedError{
		Backend:  b.Name(),
		Attempts: f.maxAttempts,
		LastErr:  lastErr,
	}
}
