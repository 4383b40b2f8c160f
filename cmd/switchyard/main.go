// Switchyard is a reverse-proxy load balancer for model-inference backends.
//
// It sits in front of a pool of inference servers and provides:
//   - Model-aware routing with least-loaded backend selection
//   - Liveness probing and automatic failover between capable backends
//   - Bearer-credential authentication against a user:key file
//   - Streamed relay of inference responses
//   - CSV or SQLite access auditing
//
// Usage:
//
//	# Start the proxy with the default configuration file
//	switchyard run
//
//	# Start with a custom configuration file
//	switchyard run --config /etc/switchyard/config.yaml
//
//	# Validate a configuration file without starting
//	switchyard validate --config config.yaml
//
//	# Show version information
//	switchyard version
package main

func main() {
	Execute()
}
