package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exposed on /metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	entriesAccepted prometheus.Counter
	entryRejections *prometheus.CounterVec
	batchesSent     prometheus.Counter
	batchFailures   prometheus.Counter
	activeSessions  prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "badgereq_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "badgereq_http_request_duration_seconds",
			Help:    "HTTP request duration by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		entriesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "badgereq_entries_accepted_total",
			Help: "Entries validated, saved and added to a session.",
		}),
		entryRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "badgereq_entry_rejections_total",
			Help: "Add attempts that did not produce an entry, by reason.",
		}, []string{"reason"}),
		batchesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "badgereq_batches_sent_total",
			Help: "Batches delivered to the notifier.",
		}),
		batchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "badgereq_batch_failures_total",
			Help: "Batch submissions the notifier rejected.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "badgereq_active_sessions",
			Help: "Form sessions currently held in memory.",
		}),
	}
	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.entriesAccepted,
		m.entryRejections,
		m.batchesSent,
		m.batchFailures,
		m.activeSessions,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// Middleware records request counts and durations per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
