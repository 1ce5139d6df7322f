// Package server runs the remote side of the terminal.
//
// It wires the HTTP router and its middleware stack to the WebSocket
// handlers, the PTY session manager and the token registry:
//   - GET  /termsocket          stream protocol
//   - POST /sessions            issue an RPC session token
//   - GET  /sessions            list running shells
//   - GET  /rpc/token/:token    RPC protocol
//   - GET  /health, /metrics    observability
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv := server.New(cfg, logger)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("Server error", zap.Error(err))
//	}
package server
