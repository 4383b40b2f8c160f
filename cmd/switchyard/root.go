package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "switchyard",
	Short: "Switchyard - load balancer for model-inference backends",
	Long: `Switchyard is a reverse proxy that spreads inference traffic across a
pool of model-serving backends.

Requests to generation endpoints are routed to the least-loaded backend
that serves the requested model, with liveness probing and failover.
Every other path is mirrored to the default backend, so clients use the
proxy address exactly as they would a single server.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
