package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config controls metric exposition.
type Config struct {
	// Enabled controls whether the metrics listener is started.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the dedicated metrics address ("host:port"). The
	// proxy listener mirrors every path upstream, so metrics get their own
	// port. Default: ":9090".
	ListenAddress string `yaml:"listen_address"`

	// Namespace is the metric name prefix. Default: "switchyard".
	Namespace string `yaml:"namespace"`
}

// Collector owns all Prometheus metrics for the proxy.
//
// All recording methods are nil-safe: a nil *Collector records nothing, so
// callers can hold an optional collector without guarding every call site.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inflight        *prometheus.GaugeVec
	backendUp       *prometheus.GaugeVec
	retriesTotal    *prometheus.CounterVec
	auditFailures   prometheus.Counter
}

// NewCollector creates and registers the proxy metrics. If registry is nil a
// fresh one is created.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "switchyard"
	}

	c := &Collector{
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "requests_total",
				Help:      "Proxied requests by backend, model and outcome",
			},
			[]string{"backend", "model", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "request_duration_seconds",
				Help:      "End-to-end duration of proxied requests",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7m
			},
			[]string{"backend"},
		),

		inflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Name:      "backend_inflight",
				Help:      "Requests currently admitted to each backend",
			},
			[]string{"backend"},
		),

		backendUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Name:      "backend_up",
				Help:      "Last observed backend liveness (1 up, 0 down)",
			},
			[]string{"backend"},
		),

		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "upstream_retries_total",
				Help:      "Forwarding attempts beyond the first, per backend",
			},
			[]string{"backend"},
		),

		auditFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "audit_write_failures_total",
				Help:      "Access records that could not be written to the sink",
			},
		),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.inflight,
		c.backendUp,
		c.retriesTotal,
		c.auditFailures,
	)

	return c
}

// RecordRequest records one finished proxied request.
// Status is a coarse outcome: "success", "error", "rejected", "unroutable".
func (c *Collector) RecordRequest(backendName, model, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(backendName, model, status).Inc()
	if backendName != "" {
		c.requestDuration.WithLabelValues(backendName).Observe(duration.Seconds())
	}
}

// SetInFlight publishes the current in-flight count for a backend.
func (c *Collector) SetInFlight(backendName string, n int64) {
	if c == nil {
		return
	}
	c.inflight.WithLabelValues(backendName).Set(float64(n))
}

// SetBackendUp publishes the last observed liveness for a backend.
func (c *Collector) SetBackendUp(backendName string, up bool) {
	if c == nil {
		return
	}
	v := 0.0
	if up {
		v = 1.0
	}
	c.backendUp.WithLabelValues(backendName).Set(v)
}

// IncRetry counts one forwarding retry against a backend.
func (c *Collector) IncRetry(backendName string) {
	if c == nil {
		return
	}
	c.retriesTotal.WithLabelValues(backendName).Inc()
}

// IncAuditFailure counts one dropped access record.
func (c *Collector) IncAuditFailure() {
	if c == nil {
		return
	}
	c.auditFailures.Inc()
}
