package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RecordsTotal is the inventory size seen by the last write or listing.
	RecordsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inventory_records",
			Help: "Number of records in the inventory",
		},
	)

	// MutationsTotal counts successful writes by op (create, update, patch, delete, bulk_delete, import).
	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_mutations_total",
			Help: "Total number of successful inventory mutations by operation",
		},
		[]string{"op"},
	)

	// ImportRowsTotal counts imported rows by result (added, updated, skipped).
	ImportRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_import_rows_total",
			Help: "Total number of imported rows by result",
		},
		[]string{"result"},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, RecordsTotal, MutationsTotal, ImportRowsTotal)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /api/inventory/123 -> /api/inventory/{id}. Used when no route pattern matched.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// SetRecords sets the inventory size gauge.
func SetRecords(n int) {
	RecordsTotal.Set(float64(n))
}

// IncMutation counts one successful write of the given op.
func IncMutation(op string) {
	MutationsTotal.WithLabelValues(op).Inc()
}

// AddImportRows records the per-row outcome of one import.
func AddImportRows(added, updated, skipped int) {
	ImportRowsTotal.WithLabelValues("added").Add(float64(added))
	ImportRowsTotal.WithLabelValues("updated").Add(float64(updated))
	ImportRowsTotal.WithLabelValues("skipped").Add(float64(skipped))
}
