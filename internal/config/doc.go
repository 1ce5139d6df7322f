// Package config provides 12-factor configuration for the webterm binaries.
//
// Values are layered: Default(), then an optional profile file (YAML or TOML,
// chosen by extension), then environment variables. CLI flags override the
// result in cmd/.
//
// Configuration Sections:
//   - Server: listen address and allowed CORS origins
//   - Terminal: shell, working directory, TERM and token lifetime
//   - Client: server URL, wire protocol, grid and content policy
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//
// Example Usage:
//
//	cfg, err := config.LoadFile("webterm.yaml")
//	fmt.Printf("Server running on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - PORT, HOST, CORS_ORIGINS
//   - WEBTERM_SHELL, WEBTERM_WORKDIR, WEBTERM_TERM, WEBTERM_TOKEN_TTL
//   - WEBTERM_URL, WEBTERM_MODE, WEBTERM_ROWS, WEBTERM_COLS, WEBTERM_CONTENT,
//     WEBTERM_HANDSHAKE_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
