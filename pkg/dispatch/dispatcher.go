package dispatch

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"switchyard-hq/switchyard/pkg/audit"
	"switchyard-hq/switchyard/pkg/backend"
	"switchyard-hq/switchyard/pkg/relay"
	"switchyard-hq/switchyard/pkg/server/middleware"
	"switchyard-hq/switchyard/pkg/telemetry/metrics"
)

// Options configures a Dispatcher.
type Options struct {
	// Registry is the configured backend pool. Required.
	Registry *backend.Registry

	// Prober checks backend liveness before a request is committed.
	// Required.
	Prober *backend.Prober

	// Auditor receives access records. Defaults to a NopRecorder.
	Auditor audit.Recorder

	// Collector records metrics. May be nil.
	Collector *metrics.Collector

	// MaxAttempts is the per-candidate forwarding attempt budget.
	// Defaults to DefaultMaxAttempts.
	MaxAttempts int

	// ExtraModelEndpoints adds paths to the model-routed endpoint set.
	ExtraModelEndpoints []string

	// FallbackToDefault routes requests for unknown models to the default
	// backend instead of failing with 503. Off by default: silently handing
	// a request to a server that has never heard of the model hides
	// misconfiguration. The knob exists for parity with deployments that
	// relied on the permissive behavior.
	FallbackToDefault bool

	// ChunkSize is the relay chunk buffer size.
	// Defaults to relay.DefaultChunkSize.
	ChunkSize int
}

// Dispatcher routes authenticated requests to backends.
type Dispatcher struct {
	registry  *backend.Registry
	prober    *backend.Prober
	forwarder *Forwarder
	relay     *relay.Relay
	auditor   audit.Recorder
	collector *metrics.Collector

	modelEndpoints    map[string]struct{}
	fallbackToDefault bool
}

// New creates a dispatcher.
func New(opts Options) *Dispatcher {
	auditor := opts.Auditor
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}

	endpoints := make(map[string]struct{}, len(defaultModelEndpoints)+len(opts.ExtraModelEndpoints))
	for _, p := range defaultModelEndpoints {
		endpoints[p] = struct{}{}
	}
	for _, p := range opts.ExtraModelEndpoints {
		endpoints[p] = struct{}{}
	}

	return &Dispatcher{
		registry:          opts.Registry,
		prober:            opts.Prober,
		forwarder:         NewForwarder(opts.MaxAttempts, opts.Collector),
		relay:             relay.New(opts.ChunkSize),
		auditor:           auditor,
		collector:         opts.Collector,
		modelEndpoints:    endpoints,
		fallbackToDefault: opts.FallbackToDefault,
	}
}

// IsModelRouted reports whether the path requires model-aware routing.
func (d *Dispatcher) IsModelRouted(path string) bool {
	_, ok := d.modelEndpoints[path]
	return ok
}

// Dispatch routes one authenticated request. user is the identity resolved
// by the authenticator. All routing errors are written to w as an HTTP
// status with a short text body; Dispatch never panics them upward.
func (d *Dispatcher) Dispatch(w http.ResponseWriter, r *http.Request, user string) {
	clientIP := clientAddr(r)
	requestID := middleware.GetRequestID(r.Context())

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			// Treat a half-read body like the undecodable case: forward
			// what arrived and let extraction fail softly.
			slog.Warn("failed to read request body", "request_id", requestID, "error", err)
		}
	}

	if d.IsModelRouted(r.URL.Path) {
		d.dispatchModelRouted(w, r, user, clientIP, requestID, body)
		return
	}
	d.dispatchMirror(w, r, user, clientIP, requestID, body)
}

// dispatchModelRouted implements least-loaded-with-failover over the capable
// candidate set.
func (d *Dispatcher) dispatchModelRouted(w http.ResponseWriter, r *http.Request, user, clientIP, requestID string, body []byte) {
	model := ExtractModel(body, r.URL.Query())
	if model == "" {
		slog.Warn("model-routed request without model",
			"path", r.URL.Path,
			"user", user,
			"request_id", requestID,
		)
		d.collector.RecordRequest("", "", "rejected", 0)
		http.Error(w, "Missing 'model' in request", http.StatusBadRequest)
		return
	}

	candidates := d.registry.Capable(model)
	if len(candidates) == 0 && d.fallbackToDefault {
		slog.Warn("no backend supports model, falling back to default",
			"model", model,
			"default", d.registry.Default().Name(),
			"request_id", requestID,
		)
		candidates = []*backend.Backend{d.registry.Default()}
	}
	if len(candidates) == 0 {
		slog.Warn("no capable backend",
			"model", model,
			"user", user,
			"request_id", requestID,
		)
		d.collector.RecordRequest("", model, "unroutable", 0)
		http.Error(w, (&NoCapableBackendError{Model: model}).Error(), http.StatusServiceUnavailable)
		return
	}

	fr := NewForwardRequest(r, body)
	req := requestInfo{
		user:      user,
		clientIP:  clientIP,
		requestID: requestID,
		model:     model,
		admitted:  audit.EventGenRequest,
		completed: audit.EventGenDone,
		failed:    audit.EventGenError,
	}

	var attempted []string
	for len(candidates) > 0 {
		b := backend.LeastLoaded(candidates)

		if !d.prober.Available(r.Context(), b) {
			slog.Info("skipping unavailable backend",
				"backend", b.Name(),
				"model", model,
				"request_id", requestID,
			)
			d.collector.SetBackendUp(b.Name(), false)
			attempted = append(attempted, b.Name())
			candidates = removeBackend(candidates, b)
			continue
		}
		d.collector.SetBackendUp(b.Name(), true)

		if d.forwardOne(w, r, b, fr, req) {
			return
		}
		attempted = append(attempted, b.Name())
		candidates = removeBackend(candidates, b)
	}

	err := &AllCandidatesFailedError{Model: model, Attempted: attempted}
	slog.Error("candidate set exhausted",
		"model", model,
		"attempted", attempted,
		"request_id", requestID,
	)
	http.Error(w, err.Error(), http.StatusServiceUnavailable)
}

// dispatchMirror forwards a non-model-routed request to the default backend.
// There is no failover: arbitrary paths are not known to be interchangeable
// across backends.
func (d *Dispatcher) dispatchMirror(w http.ResponseWriter, r *http.Request, user, clientIP, requestID string, body []byte) {
	b := d.registry.Default()

	if !d.prober.Available(r.Context(), b) {
		slog.Warn("default backend unavailable",
			"backend", b.Name(),
			"path", r.URL.Path,
			"request_id", requestID,
		)
		d.collector.SetBackendUp(b.Name(), false)
		d.collector.RecordRequest(b.Name(), "", "unroutable", 0)
		http.Error(w, "default backend unavailable", http.StatusServiceUnavailable)
		return
	}
	d.collector.SetBackendUp(b.Name(), true)

	fr := NewForwardRequest(r, body)
	req := requestInfo{
		user:      user,
		clientIP:  clientIP,
		requestID: requestID,
		admitted:  audit.EventRequest,
		completed: audit.EventDone,
		failed:    audit.EventError,
	}
	if !d.forwardOne(w, r, b, fr, req) {
		http.Error(w, "default backend failed", http.StatusServiceUnavailable)
	}
}

// requestInfo carries the per-request audit identity and event names.
type requestInfo struct {
	user      string
	clientIP  string
	requestID string
	model     string
	admitted  string
	completed string
	failed    string
}

// forwardOne admits the request to b, forwards it with the retry budget, and
// relays the response. It reports whether a response was written to the
// client (terminal) or the candidate should be failed over.
//
// The slot is released on every path: the deferred release is idempotent, so
// the eager release before the completion record cannot double-decrement.
func (d *Dispatcher) forwardOne(w http.ResponseWriter, r *http.Request, b *backend.Backend, fr *ForwardRequest, req requestInfo) bool {
	d.record(audit.Record{
		Timestamp:  time.Now(),
		Event:      req.admitted,
		User:       req.user,
		ClientIP:   req.clientIP,
		Access:     audit.AccessAuthorized,
		Server:     b.Name(),
		QueueDepth: int(b.InFlight()),
		RequestID:  req.requestID,
	})

	slot := d.registry.Reserve(b)
	defer func() {
		slot.Release()
		d.collector.SetInFlight(b.Name(), b.InFlight())
	}()
	d.collector.SetInFlight(b.Name(), b.InFlight())

	start := time.Now()
	resp, cancel, err := d.forwarder.Forward(r.Context(), b, fr)
	if err != nil {
		slot.Release()
		d.record(audit.Record{
			Timestamp:  time.Now(),
			Event:      req.failed,
			User:       req.user,
			ClientIP:   req.clientIP,
			Access:     audit.AccessAuthorized,
			Server:     b.Name(),
			QueueDepth: int(b.InFlight()),
			Error:      err.Error(),
			RequestID:  req.requestID,
		})
		d.collector.RecordRequest(b.Name(), req.model, "error", time.Since(start))
		return false
	}
	defer cancel()

	written := d.relay.Stream(w, resp)

	slot.Release()
	d.record(audit.Record{
		Timestamp:  time.Now(),
		Event:      req.completed,
		User:       req.user,
		ClientIP:   req.clientIP,
		Access:     audit.AccessAuthorized,
		Server:     b.Name(),
		QueueDepth: int(b.InFlight()),
		RequestID:  req.requestID,
	})
	d.collector.RecordRequest(b.Name(), req.model, "success", time.Since(start))

	slog.Info("request relayed",
		"backend", b.Name(),
		"model", req.model,
		"status", resp.StatusCode,
		"bytes", written,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", req.requestID,
	)
	return true
}

// record writes an audit record, counting (but otherwise absorbing) sink
// failures: a broken audit sink must not take the proxy down with it.
func (d *Dispatcher) record(rec audit.Record) {
	if err := d.auditor.Record(rec); err != nil {
		d.collector.IncAuditFailure()
		slog.Error("failed to write access record", "event", rec.Event, "error", err)
	}
}

func removeBackend(list []*backend.Backend, b *backend.Backend) []*backend.Backend {
	out := list[:0]
	for _, c := range list {
		if c != b {
			out = append(out, c)
		}
	}
	return out
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
