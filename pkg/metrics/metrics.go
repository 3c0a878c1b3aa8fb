// Package metrics provides the centralized Prometheus metrics registry for
// the HubSpot extract client. Metrics are defined in their respective
// packages (client, extract, ratelimit) via promauto to maintain modularity
// and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - hubspot_calls_remaining (Gauge): Calls remaining in current rate limit window
//   - hubspot_rate_limit_blocks_total (Counter): Requests blocked due to critical call budget
//   - hubspot_rate_limit_throttles_total (Counter): Requests throttled due to low call budget
//
// Request Metrics (pkg/client):
//   - hubspot_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - hubspot_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - hubspot_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - hubspot_retries_total{error_class} (Counter): Retry attempts by error class
//   - hubspot_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - hubspot_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Extraction Metrics (pkg/extract):
//   - hubspot_extract_pages_total{endpoint} (Counter): Pages fetched by endpoint
//   - hubspot_extract_rows_total{endpoint} (Counter): Rows extracted by endpoint
//   - hubspot_extract_duration_seconds{endpoint} (Histogram): Extraction call duration by endpoint
