package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cs2",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "schema", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cs2",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "schema", "status"},
	)
	codecOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cs2",
			Subsystem: "codec",
			Name:      "operations_total",
			Help:      "Encode and decode operations by schema and outcome.",
		},
		[]string{"op", "schema", "success"},
	)
	codecDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cs2",
			Subsystem: "codec",
			Name:      "operation_duration_seconds",
			Help:      "Encode and decode duration in seconds.",
			Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"op", "schema"},
	)
	codecBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cs2",
			Subsystem: "codec",
			Name:      "document_bytes_total",
			Help:      "CS2 document bytes read or written.",
		},
		[]string{"op", "schema"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, codecOps, codecDuration, codecBytes)
	})
}

// RecordHTTPRequest records one request against route path for schema ("-" when
// the route names none).
func RecordHTTPRequest(service, method, path, schema string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, schema, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, schema, statusLabel).Observe(duration.Seconds())
}

// RecordCodecOp records one encode or decode of a CS2 document of size bytes.
func RecordCodecOp(op, schema string, size int, duration time.Duration, success bool) {
	RegisterMetrics()
	codecOps.WithLabelValues(op, schema, strconv.FormatBool(success)).Inc()
	codecDuration.WithLabelValues(op, schema).Observe(duration.Seconds())
	if success {
		codecBytes.WithLabelValues(op, schema).Add(float64(size))
	}
}
