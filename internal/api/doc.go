// Package api exposes a running job pool over HTTP.
//
// Endpoints:
//
//	GET /api/status   pool name, state, size, running workers, queued jobs
//	GET /api/metrics  job counters and latencies as JSON
//	GET /metrics      Prometheus exposition of the pool's registry
//	    /ws           WebSocket stream of periodic stats and lifecycle events
package api
