package config

import "time"

// Default values applied to unset fields.
const (
	DefaultListenAddress  = "0.0.0.0:8000"
	DefaultAuditBackend   = "csv"
	DefaultAuditPath      = "access_log.csv"
	DefaultMaxAttempts    = 3
	DefaultProbeTimeout   = 2 * time.Second
	DefaultSweepInterval  = 30 * time.Second
	DefaultChunkSize      = 1024
	DefaultBackendTimeout = 300 * time.Second
)

// ApplyDefaults fills unset fields with their defaults. Booleans are left
// alone: absence and false are indistinguishable after YAML decoding, so
// defaults that are true (security.enabled) are handled by NewDefault.
func ApplyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if cfg.Routing.MaxAttempts == 0 {
		cfg.Routing.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Routing.ProbeTimeout == 0 {
		cfg.Routing.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Routing.ChunkSize == 0 {
		cfg.Routing.ChunkSize = DefaultChunkSize
	}

	for i := range cfg.Backends {
		if cfg.Backends[i].Timeout == 0 {
			cfg.Backends[i].Timeout = DefaultBackendTimeout
		}
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = DefaultAuditPath
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = ":9090"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "switchyard"
	}

	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	// WriteTimeout stays zero by default: responses stream for as long as
	// the backend produces tokens.
	cfg.Server.ListenAddress = cfg.ListenAddress
}

// NewDefault returns a configuration with every default applied and
// security enabled, as a starting point for tests and dry runs.
func NewDefault() *Config {
	cfg := &Config{
		Security: SecurityConfig{Enabled: true},
		Routing:  RoutingConfig{SweepInterval: DefaultSweepInterval},
	}
	ApplyDefaults(cfg)
	return cfg
}
