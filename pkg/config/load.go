package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path, overlays it on the defaults, applies
// environment overrides, and validates the result.
//
// The file is decoded over a fully defaulted configuration, so fields absent
// from the file keep their defaults — including the booleans (security is on
// unless the file says otherwise).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies SWITCHYARD_* environment variables on top of the
// file. Only scalar operational knobs are overridable; the backend pool
// shape belongs in the file.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SWITCHYARD_LISTEN_ADDRESS"); val != "" {
		cfg.ListenAddress = val
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("SWITCHYARD_SECURITY_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Security.Enabled = b
		}
	}
	if val := os.Getenv("SWITCHYARD_USERS_FILE"); val != "" {
		cfg.Security.UsersFile = val
	}
	if val := os.Getenv("SWITCHYARD_MAX_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Routing.MaxAttempts = n
		}
	}
	if val := os.Getenv("SWITCHYARD_PROBE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Routing.ProbeTimeout = d
		}
	}
	if val := os.Getenv("SWITCHYARD_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("SWITCHYARD_AUDIT_PATH"); val != "" {
		cfg.Audit.Path = val
	}
	if val := os.Getenv("SWITCHYARD_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("SWITCHYARD_METRICS_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
}
