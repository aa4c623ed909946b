// Package metrics exposes the Prometheus registry used by the cache inspector.
// All metrics are defined in their respective packages (inspect, store,
// ratelimit, server) to maintain modularity and avoid circular dependencies.
//
// This package provides the scrape handler and documents every metric.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the inspector.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Inspection Metrics (pkg/inspect):
//   - inspector_requests_total{status} (Counter): Inspected requests by HTTP status or "network_error"
//   - inspector_request_duration_seconds (Histogram): Duration of inspected requests
//   - inspector_errors_total{class} (Counter): Errors by class (invalid_url, network, not_netlify)
//
// Retry Metrics (pkg/inspect):
//   - inspector_retries_total{error_class} (Counter): Retry attempts by error class
//   - inspector_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - inspector_retry_exhausted_total{error_class} (Counter): Inspections that exhausted max retries
//
// Store Metrics (pkg/store):
//   - inspector_store_operations_total{backend, operation} (Counter): Store operations
//   - inspector_store_errors_total{backend, operation} (Counter): Failed store operations
//   - inspector_store_misses_total{backend} (Counter): Lookups of unknown runs or reports
//
// Rate Limit Metrics (pkg/ratelimit):
//   - inspector_rate_limit_blocks_total (Counter): Inspections rejected by the per-client limit
//   - inspector_rate_limit_errors_total (Counter): Limit checks that could not reach Redis
//
// HTTP API Metrics (internal/server):
//   - inspector_http_requests_total{route, code} (Counter): API requests by route pattern and status
//   - inspector_analyses_total{served_by} (Counter): Analyses by resolved serving component
//
// Example Prometheus Queries:
//
//   # Share of responses served by the edge cache
//   sum(rate(inspector_analyses_total{served_by="CDN"}[1h])) /
//   sum(rate(inspector_analyses_total[1h]))
//
//   # Inspection Error Rate
//   rate(inspector_errors_total[5m])
//
//   # P95 Inspection Latency
//   histogram_quantile(0.95, rate(inspector_request_duration_seconds_bucket[5m]))
//
//   # Store Error Rate
//   sum by (backend) (rate(inspector_store_errors_total[5m]))
