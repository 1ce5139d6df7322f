// Package middleware provides the HTTP middleware of the remote side.
//
// The stack, outermost first:
//   - RequestID: tags each request with a UUID (X-Request-ID) and a request
//     scoped zap logger
//   - Logger: structured access log
//   - CORS: cross-origin access for browser clients
//   - RateLimit: per-IP token bucket, applied to token issuance and upgrades
//
// Example Usage:
//
//	router.Use(middleware.RequestID(logger), middleware.Logger())
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.POST("/sessions", middleware.RateLimit(cfg), handler)
package middleware
