// Package metrics registers the Prometheus instruments for the HTTP
// surface and the ingestion pipeline. HTTP request metrics are recorded
// by the middleware here; business metrics are exported for the service
// layer to update.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crate_http_requests_total",
			Help: "Total HTTP requests served by the catalog API",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Business metrics updated from the service layer.
var (
	// IngestsTotal counts ingestion attempts by outcome class.
	IngestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crate_ingests_total",
			Help: "Ingestion attempts by outcome",
		},
		[]string{"outcome"},
	)

	// StorageWritesTotal counts blob writes by tier and remote status.
	StorageWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crate_storage_writes_total",
			Help: "Blob writes by storage tier and remote status",
		},
		[]string{"tier", "remote_status"},
	)

	// DuplicatesTotal counts rejected duplicates by match type.
	DuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crate_duplicates_total",
			Help: "Duplicate submissions rejected, by match type",
		},
		[]string{"match_type"},
	)

	// OrphansDeleted counts catalog records removed by reconciliation.
	OrphansDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crate_orphans_deleted_total",
			Help: "Catalog records removed by orphan reconciliation",
		},
	)

	// PlaysTotal counts stream plays recorded through the API.
	PlaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crate_plays_total",
			Help: "Mix plays recorded through the streaming endpoint",
		},
	)

	// CatalogMixes tracks the current number of cataloged mixes.
	CatalogMixes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crate_catalog_mixes",
			Help: "Current number of mixes in the catalog",
		},
	)
)

// Middleware records request counts and durations per endpoint. Paths
// are normalized through the supplied route-pattern function so ID
// segments do not blow up label cardinality.
func Middleware(routePattern func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newStatusWriter(w)
			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if routePattern != nil {
				if pattern := routePattern(r); pattern != "" {
					path = pattern
				}
			}

			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the original ResponseWriter.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
