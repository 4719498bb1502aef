// Package metrics exposes the Prometheus registry used by the trade paginator.
// All metrics are defined in their respective packages (transport, pagination)
// via promauto to maintain modularity and avoid circular dependencies.
//
// This package provides documentation, reference and an HTTP handler for them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the paginator.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer paired with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an http.Handler serving every registered metric in the
// Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/transport):
//   - trades_transport_requests_total{status} (Counter): Requests by HTTP status ("error" when no response)
//   - trades_transport_request_duration_seconds (Histogram): Request duration
//   - trades_transport_errors_total{class} (Counter): Errors by class (network, timeout, client, server, rate_limit)
//
// Pagination Metrics (pkg/pagination):
//   - trades_pages_total (Counter): Non-empty pages emitted to consumers
//   - trades_records_total (Counter): Records contained in emitted pages
//   - trades_retries_total{error_class} (Counter): Retry attempts by error class
//   - trades_retry_exhausted_total{error_class} (Counter): Pages that exhausted max retries
//   - trades_pagination_runs_total{outcome} (Counter): Finished runs (terminated, failed, cancelled)
//   - trades_cursor (Gauge): tid of the most recent page request
//
// Example Prometheus Queries:
//
//   # Retry Rate
//   sum(rate(trades_retries_total[5m])) by (error_class)
//
//   # Records per Second
//   rate(trades_records_total[1m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(trades_transport_request_duration_seconds_bucket[5m]))
