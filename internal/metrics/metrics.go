// Package metrics holds the Prometheus collectors of the catalog service.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	exportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_export_rows_total",
			Help: "Total number of rows written by exports",
		},
		[]string{"resource", "format"},
	)

	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_exports_total",
			Help: "Total number of finished exports by outcome",
		},
		[]string{"resource", "format", "status"},
	)

	bulkAffectedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_bulk_affected_rows_total",
			Help: "Total number of rows affected by bulk operations",
		},
		[]string{"resource", "operation"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordExport counts one finished export and the rows it wrote.
func RecordExport(resource, format string, rows int, err error) {
	resource = normalizeLabel(resource)
	format = normalizeLabel(format)
	status := "ok"
	if err != nil {
		status = "error"
	}
	exportRowsTotal.WithLabelValues(resource, format).Add(float64(rows))
	exportsTotal.WithLabelValues(resource, format, status).Inc()
}

// RecordBulk counts the rows affected by one bulk operation.
func RecordBulk(resource, operation string, affected int64) {
	bulkAffectedRowsTotal.WithLabelValues(normalizeLabel(resource), normalizeLabel(operation)).Add(float64(affected))
}

// RecordRequest observes one HTTP request. route must be the route template,
// not the raw path, to keep label cardinality bounded.
func RecordRequest(method, route, status string, seconds float64) {
	route = normalizeLabel(route)
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func normalizeLabel(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
