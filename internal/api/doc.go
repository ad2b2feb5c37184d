// Package api hosts the HTTP server, middleware, and REST handlers. Notable routes:
//   - GET /api/search/{movies,tv,books} and /api/live-tv/verified serve cached,
//     verified result sets.
//   - GET /api/verify/stream/{url} probes a single URL, uncached.
//   - GET /api/test/... runs the sample self-test suite.
//   - DELETE /api/cache[/{key}] invalidates cached results.
//   - GET /healthz, /readyz, /api/health for probes and status.
//   - GET /metrics for Prometheus scraping.
package api
