package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ethpandaops/qahub/pkg/simulator"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "qahub"

// metrics holds the server's collectors on a private registry so that
// several servers can coexist in one process.
type metrics struct {
	registry *prometheus.Registry

	httpDuration      *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec
	simulatedTests    *prometheus.CounterVec
	simulatedDuration prometheus.Histogram
	archiveDropped    prometheus.Counter
}

// Ensure interface compliance.
var _ simulator.Observer = (*metrics)(nil)

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status_class"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_class"},
		),
		simulatedTests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "simulated_tests_total",
				Help:      "Simulated test executions by outcome",
			},
			[]string{"status"},
		),
		simulatedDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "simulated_test_duration_ms",
				Help:      "Recorded duration of simulated tests in milliseconds",
				Buckets:   []float64{100, 250, 500, 1000, 3000, 4000, 5000},
			},
		),
		archiveDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "report_archive_dropped_total",
				Help:      "Reports not archived because the queue was full",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration,
		m.httpRequests,
		m.simulatedTests,
		m.simulatedDuration,
		m.archiveDropped,
	)

	return m
}

// ObserveSimulatedTest records one simulated outcome.
func (m *metrics) ObserveSimulatedTest(status string, durationMs int) {
	m.simulatedTests.WithLabelValues(status).Inc()
	m.simulatedDuration.Observe(float64(durationMs))
}

// middleware records request counts and latency keyed by route pattern.
func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		statusClass := strconv.Itoa(status/100) + "xx"

		m.httpDuration.WithLabelValues(r.Method, route, statusClass).
			Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(r.Method, route, statusClass).Inc()
	})
}
