// Package metrics exposes the Prometheus metrics of the LIMS client.
// Metrics are defined in their own packages (client, cache, pagination)
// and registered on the default registry via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the LIMS client.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - lims_requests_total{method, status} (Counter): Requests by HTTP method and status
//   - lims_request_duration_seconds{method} (Histogram): Request duration by method
//   - lims_errors_total{class} (Counter): Errors by class (client, server, network, unexpected)
//   - lims_get_total{path} (Counter): Get calls by path (batch, concurrent, single, harvest)
//
// Pagination Metrics (pkg/pagination):
//   - lims_pages_harvested_total (Counter): Listing pages consumed by the harvester
//   - lims_dispatch_inflight (Gauge): GETs currently running in the dispatcher pool
//   - lims_dispatch_duration_seconds (Histogram): Wall time of one concurrent fetch group
//
// Cache Metrics (pkg/cache):
//   - lims_cache_hits_total{layer} (Counter): Cache hits by layer (memory, redis)
//   - lims_cache_misses_total (Counter): Cache misses
//   - lims_cache_size_bytes{layer} (Gauge): Bytes written to the cache by layer
//   - lims_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(lims_cache_hits_total[5m])) /
//   (sum(rate(lims_cache_hits_total[5m])) + sum(rate(lims_cache_misses_total[5m])))
//
//   # Batch share of Get calls
//   rate(lims_get_total{path="batch"}[5m]) / sum(rate(lims_get_total[5m]))
//
//   # Server Error Rate
//   rate(lims_errors_total{class="server"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(lims_request_duration_seconds_bucket[5m]))
