package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	duplicateChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_duplicate_checks_total",
			Help: "Total number of duplicate checks on report submission",
		},
		[]string{"outcome"},
	)

	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_resolutions_total",
			Help: "Total number of resolution attempts",
		},
		[]string{"outcome"},
	)
)

// MetricsMiddleware collects Prometheus metrics for HTTP requests.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// RecordDuplicateCheck records the outcome of a submission duplicate check.
func RecordDuplicateCheck(duplicate bool) {
	outcome := "unique"
	if duplicate {
		outcome = "duplicate"
	}
	duplicateChecksTotal.WithLabelValues(outcome).Inc()
}

// RecordResolution records the outcome of a resolution attempt.
func RecordResolution(outcome string) {
	resolutionsTotal.WithLabelValues(outcome).Inc()
}
