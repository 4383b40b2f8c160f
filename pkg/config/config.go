// Package config loads, defaults, and validates the proxy configuration.
package config

import (
	"time"

	"switchyard-hq/switchyard/pkg/server"
	"switchyard-hq/switchyard/pkg/telemetry/logging"
	"switchyard-hq/switchyard/pkg/telemetry/metrics"
)

// Config is the root configuration structure.
type Config struct {
	// ListenAddress is the proxy's "host:port".
	// Default: "0.0.0.0:8000"
	ListenAddress string `yaml:"listen_address"`

	// Security controls credential checking.
	Security SecurityConfig `yaml:"security"`

	// Routing controls model routing and the retry budget.
	Routing RoutingConfig `yaml:"routing"`

	// Backends is the ordered backend pool. At least one entry is
	// required; the first is the default backend for mirrored paths.
	Backends []BackendConfig `yaml:"backends"`

	// Audit configures the access-log sink.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Server holds the HTTP listener timeouts.
	Server server.Config `yaml:"server"`
}

// SecurityConfig controls client authentication.
type SecurityConfig struct {
	// Enabled turns credential checking on. When false every request is
	// authorized as the "unknown" identity.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// UsersFile is the path of the "user:key" credential file. Required
	// when Enabled.
	UsersFile string `yaml:"users_file"`
}

// RoutingConfig controls dispatch behavior.
type RoutingConfig struct {
	// ModelEndpoints lists extra paths that require model routing, on top
	// of the built-in generate/chat endpoints.
	ModelEndpoints []string `yaml:"model_endpoints"`

	// FallbackToDefault, when true, routes requests for models no backend
	// supports to the default backend instead of answering 503. Off by
	// default.
	FallbackToDefault bool `yaml:"fallback_to_default"`

	// MaxAttempts is the forwarding attempt budget per candidate backend.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// ProbeTimeout bounds each liveness probe. Kept small and independent
	// of backend request timeouts.
	// Default: 2s
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// SweepInterval is the period of the background health sweeper.
	// Zero disables sweeping.
	// Default: 30s
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// ChunkSize is the relay's body chunk buffer in bytes.
	// Default: 1024
	ChunkSize int `yaml:"chunk_size"`
}

// BackendConfig describes one backend pool entry.
type BackendConfig struct {
	// Name is the backend's unique identifier.
	Name string `yaml:"name"`

	// URL is the base URL requests are forwarded to.
	URL string `yaml:"url"`

	// Models is the set of model identifiers this backend serves.
	Models []string `yaml:"models"`

	// Timeout is the per-attempt forwarding timeout.
	// Default: 300s
	Timeout time.Duration `yaml:"timeout"`
}

// AuditConfig configures the access-log sink.
type AuditConfig struct {
	// Backend selects the sink: "csv", "sqlite", or "none".
	// Default: "csv"
	Backend string `yaml:"backend"`

	// Path is the sink target file (CSV file or SQLite database).
	// Default: "access_log.csv"
	Path string `yaml:"path"`

	// RotateSchedule is an optional cron expression for rotating the CSV
	// log (five-field spec, e.g. "0 0 * * *"). CSV sink only.
	RotateSchedule string `yaml:"rotate_schedule"`
}

// TelemetryConfig groups observability settings.
type TelemetryConfig struct {
	Logging logging.Config `yaml:"logging"`
	Metrics metrics.Config `yaml:"metrics"`
}
