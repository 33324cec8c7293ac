package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "interviewbot"

// Metrics holds all Prometheus metrics for the interview service.
// It also satisfies interview.Metrics so the orchestrator can report lifecycle events.
type Metrics struct {
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	SessionsStarted      prometheus.Counter
	SessionsCompleted    prometheus.Counter
	ProviderErrors       *prometheus.CounterVec
	DurableWriteFailures prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
// cached, when non-nil, backs the cached_sessions gauge.
func NewMetrics(reg prometheus.Registerer, cached func() int) *Metrics {
	m := &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				// provider round trips dominate, so extend past the defaults
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"method"},
		),
		SessionsStarted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_started_total",
				Help:      "Total interview sessions started",
			},
		),
		SessionsCompleted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_completed_total",
				Help:      "Total interview sessions concluded with feedback",
			},
		),
		ProviderErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Total failed provider calls",
			},
			[]string{"phase"}, // opening/question/closing/feedback
		),
		DurableWriteFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "durable_write_failures_total",
				Help:      "Updates that reached the cache but not the durable store",
			},
		),
	}

	if cached != nil {
		promauto.With(reg).NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cached_sessions",
				Help:      "Number of sessions resident in the in-process cache",
			},
			func() float64 { return float64(cached()) },
		)
	}
	return m
}

func (m *Metrics) SessionStarted()   { m.SessionsStarted.Inc() }
func (m *Metrics) SessionCompleted() { m.SessionsCompleted.Inc() }

func (m *Metrics) ProviderFailed(phase string) {
	m.ProviderErrors.WithLabelValues(phase).Inc()
}

// DurableWriteFailed matches session.Store.OnDurableFailure
func (m *Metrics) DurableWriteFailed(string, error) {
	m.DurableWriteFailures.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware records request counts and latency
func MetricsMiddleware(m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
