package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the agent's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	exchanges    *prometheus.CounterVec
	retries      *prometheus.CounterVec
	comparisons  *prometheus.CounterVec
	matches      *prometheus.CounterVec
	requests     *prometheus.CounterVec
	errors       *prometheus.CounterVec
	requestTimes prometheus.Histogram
}

// NewMetrics registers every collector on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faceauth_token_exchanges_total",
			Help: "Face-login exchanges by role and outcome.",
		}, []string{"role", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faceauth_retry_total",
			Help: "Unauthorized retries by outcome of the second attempt.",
		}, []string{"outcome"}),
		comparisons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faceauth_face_comparisons_total",
			Help: "Remote face comparisons by outcome.",
		}, []string{"outcome"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faceauth_face_matches_total",
			Help: "Roster scans by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faceauth_http_requests_total",
			Help: "Agent HTTP requests.",
		}, []string{"method", "path", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faceauth_http_errors_total",
			Help: "Agent HTTP requests that ended in an error response, by error code.",
		}, []string{"method", "path", "code"}),
		requestTimes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "faceauth_http_request_seconds",
			Help:    "Agent HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.exchanges, m.retries, m.comparisons, m.matches, m.requests, m.errors, m.requestTimes)
	return m
}

// Registry exposes the registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordExchange(role, outcome string) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) RecordRetry(outcome string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordComparison(outcome string) {
	if m == nil {
		return
	}
	m.comparisons.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordMatch(outcome string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(outcome).Inc()
}

// RecordRequest counts a served request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestTimes.Observe(duration.Seconds())
}

// RecordError counts a request answered with an error body.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}
