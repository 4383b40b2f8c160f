package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"switchyard-hq/switchyard/pkg/audit"
	"switchyard-hq/switchyard/pkg/auth"
	"switchyard-hq/switchyard/pkg/backend"
	"switchyard-hq/switchyard/pkg/config"
	"switchyard-hq/switchyard/pkg/dispatch"
	"switchyard-hq/switchyard/pkg/server"
	"switchyard-hq/switchyard/pkg/telemetry/logging"
	"switchyard-hq/switchyard/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	noAuth        bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Switchyard proxy",
	Long: `Start the Switchyard proxy with the specified configuration.

The proxy listens on the configured address, authenticates clients against
the users file, and forwards inference requests to the least-loaded capable
backend.

Examples:
  # Start with the default config
  switchyard run

  # Start with a custom config
  switchyard run --config /etc/switchyard/config.yaml

  # Override the listen address
  switchyard run --listen 0.0.0.0:8080

  # Validate the config without starting
  switchyard run --dry-run`,
	RunE: runProxy,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.noAuth, "no-auth", false, "disable credential checking")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the proxy")
}

func runProxy(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.ListenAddress = runFlags.listenAddress
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.noAuth {
		cfg.Security.Enabled = false
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logging.Setup(cfg.Telemetry.Logging)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Switchyard v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Backend pool
	backendConfigs := make([]backend.Config, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		backendConfigs = append(backendConfigs, backend.Config{
			Name:    b.Name,
			URL:     b.URL,
			Models:  b.Models,
			Timeout: b.Timeout,
		})
	}
	registry, err := backend.NewRegistry(backendConfigs)
	if err != nil {
		return fmt.Errorf("failed to build backend pool: %w", err)
	}
	fmt.Printf("✓ Backend pool initialized (%d backends)\n", registry.Len())

	// Authentication
	var users map[string]string
	if cfg.Security.Enabled {
		users, err = auth.LoadUsers(cfg.Security.UsersFile)
		if err != nil {
			return fmt.Errorf("failed to load users file: %w", err)
		}
		fmt.Printf("✓ Loaded %d authorized users\n", len(users))
	} else {
		slog.Warn("security disabled, all requests accepted")
	}
	authenticator := auth.NewAuthenticator(users, cfg.Security.Enabled)

	// Audit sink
	auditor, rotator, err := buildAuditor(cfg)
	if err != nil {
		return err
	}
	defer auditor.Close()
	if rotator != nil {
		rotator.Start()
		defer rotator.Stop()
	}
	fmt.Printf("✓ Audit sink ready (%s)\n", cfg.Audit.Backend)

	// Metrics
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	}

	// Liveness probing
	prober := backend.NewProber(cfg.Routing.ProbeTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Routing.SweepInterval > 0 {
		sweeper := backend.NewSweeper(registry, prober, cfg.Routing.SweepInterval,
			func(b *backend.Backend, up bool) {
				collector.SetBackendUp(b.Name(), up)
			})
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	dispatcher := dispatch.New(dispatch.Options{
		Registry:            registry,
		Prober:              prober,
		Auditor:             auditor,
		Collector:           collector,
		MaxAttempts:         cfg.Routing.MaxAttempts,
		ExtraModelEndpoints: cfg.Routing.ModelEndpoints,
		FallbackToDefault:   cfg.Routing.FallbackToDefault,
		ChunkSize:           cfg.Routing.ChunkSize,
	})

	handler := server.NewHandler(authenticator, dispatcher, auditor)
	srv := server.New(cfg.Server, handler, collector, cfg.Telemetry.Metrics)

	fmt.Printf("✓ Proxy listening on %s\n", cfg.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Telemetry.Metrics.ListenAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(ctx)
}

// buildAuditor creates the configured audit sink and, for the CSV sink with
// a rotation schedule, its rotator.
func buildAuditor(cfg *config.Config) (audit.Recorder, *audit.Rotator, error) {
	switch cfg.Audit.Backend {
	case "csv":
		recorder := audit.NewCSVRecorder(cfg.Audit.Path)
		if cfg.Audit.RotateSchedule == "" {
			return recorder, nil, nil
		}
		rotator, err := audit.NewRotator(recorder, cfg.Audit.RotateSchedule)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid rotation schedule: %w", err)
		}
		return recorder, rotator, nil
	case "sqlite":
		recorder, err := audit.NewSQLiteRecorder(cfg.Audit.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		return recorder, nil, nil
	case "none":
		return audit.NopRecorder{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
	}
}
