package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Logger metrics
	ErrorsLogged    *prometheus.CounterVec
	MetricsEvents   prometheus.Counter
	MetricsFallback prometheus.Counter
	PanicsLogged    prometheus.Counter

	// Trace metrics
	TraceEmitted  *prometheus.CounterVec
	TraceAdminOps *prometheus.CounterVec

	// HTTP metrics
	ErrorResponses      *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			ErrorsLogged: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "apilog_errors_logged_total",
					Help: "Total number of error lines written, by HTTP status",
				},
				[]string{"status"},
			),
			// Event names are caller supplied, so they are not used as a label
			MetricsEvents: promauto.NewCounter(prometheus.CounterOpts{
				Name: "apilog_metrics_events_total",
				Help: "Total number of metrics events logged",
			}),
			MetricsFallback: promauto.NewCounter(prometheus.CounterOpts{
				Name: "apilog_metrics_fallback_total",
				Help: "Total number of metrics events that could not be serialized",
			}),
			PanicsLogged: promauto.NewCounter(prometheus.CounterOpts{
				Name: "apilog_panics_logged_total",
				Help: "Total number of uncaught panics logged",
			}),

			TraceEmitted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "apilog_trace_emitted_total",
					Help: "Total number of trace messages that passed the filter, by component",
				},
				[]string{"component"},
			),
			TraceAdminOps: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "apilog_trace_admin_operations_total",
					Help: "Total number of trace administration calls, by operation and result",
				},
				[]string{"operation", "result"}, // result: ok, invalid, denied
			),

			ErrorResponses: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "apilog_error_responses_total",
					Help: "Total number of error responses sent, by HTTP status",
				},
				[]string{"status"},
			),
			HTTPRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "apilog_http_requests_total",
					Help: "Total number of HTTP requests served",
				},
				[]string{"method", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "apilog_http_request_duration_seconds",
					Help:    "Duration of HTTP requests in seconds",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
				},
				[]string{"method"},
			),
		}
	})
	return metricsInstance
}
