/*
Package monitoring provides Prometheus metrics for the playground service.

# Overview

Metrics live in a private registry owned by a Metrics value, so several
servers (and tests) can coexist in one process. Every recording method is
safe to call on a nil *Metrics, which lets components run without metrics.

# Tracked

  - HTTP requests (count, latency)
  - Sandbox handles (mounted, released, live) and headless executions
  - Console relay entries by kind and dropped messages by reason
  - Persistence writes by result
  - WebSocket connections and messages

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
