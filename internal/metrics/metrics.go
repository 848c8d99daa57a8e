// Package metrics exposes Prometheus collectors for the conversion service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vector_space_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vector_space_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	conversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vector_space_conversions_total",
			Help: "Total number of conversion batches by outcome.",
		},
		[]string{"outcome"},
	)

	rowsConvertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vector_space_rows_converted_total",
			Help: "Total number of rows converted across all batches.",
		},
	)

	conversionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vector_space_conversion_duration_seconds",
			Help:    "End-to-end conversion duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(conversionsTotal)
	prometheus.MustRegister(rowsConvertedTotal)
	prometheus.MustRegister(conversionDurationSeconds)
}

// RecordConversion records the outcome of one conversion batch.
func RecordConversion(duration time.Duration, rows int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	conversionsTotal.WithLabelValues(outcome).Inc()
	conversionDurationSeconds.Observe(duration.Seconds())
	if err == nil {
		rowsConvertedTotal.Add(float64(rows))
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// knownRoutes are the exact paths the server registers. Anything else is
// collapsed to "other" to keep label cardinality bounded against bot scans.
var knownRoutes = map[string]bool{
	"/":                      true,
	"/index.html":            true,
	"/app.js":                true,
	"/styles.css":            true,
	"/healthz":               true,
	"/readyz":                true,
	"/metrics":               true,
	"/api/v1/convert":        true,
	"/api/v1/summary":        true,
	"/api/v1/archive/latest": true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		route := normalizeRoute(r.URL.Path)
		code := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
