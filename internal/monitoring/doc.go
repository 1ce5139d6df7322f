/*
Package monitoring provides Prometheus metrics for the remote side.

Every Metrics value owns its own registry, so tests and multiple servers in
one process never collide on metric names.

# Usage

	metrics := monitoring.NewMetrics()
	metrics.TrackSessions(manager.Active)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	metrics.ConnectionOpened(monitoring.ProtocolRPC)
	defer metrics.ConnectionClosed(monitoring.ProtocolRPC)
*/
package monitoring
