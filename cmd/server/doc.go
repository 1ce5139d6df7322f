// Command server runs the remote side of webterm: an HTTP server that
// spawns a shell behind a PTY for every terminal connection.
//
// Configuration comes from defaults, an optional YAML or TOML profile and
// the environment, in that order. Flags override all three.
//
// Usage:
//
//	server --port 8000 --shell /bin/bash
//	server --config webterm.yaml --dev
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main
