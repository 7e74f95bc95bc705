// Package metrics provides Prometheus metrics for the token broker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Metrics holds all Prometheus metrics for the token broker.
// It satisfies authctx.Recorder.
type Metrics struct {
	// Engine metrics
	CacheLookupsTotal   *prometheus.CounterVec
	RenewalsTotal       *prometheus.CounterVec
	RenewalResultsTotal *prometheus.CounterVec
	RenewalsInFlight    prometheus.Gauge
	LoginsTotal         prometheus.Counter
	CallbacksTotal      *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Registry for metrics
	Registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	reg.MustRegister(prometheus.NewBuildInfoCollector())

	m := &Metrics{
		Registry: reg,

		CacheLookupsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_broker_cache_lookups_total",
				Help: "Total number of token cache lookups",
			},
			[]string{"result"},
		),
		RenewalsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_broker_renewals_total",
				Help: "Total number of silent renewals started",
			},
			[]string{"kind"},
		),
		RenewalResultsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_broker_renewal_results_total",
				Help: "Total number of silent renewals finished, by outcome",
			},
			[]string{"outcome"},
		),
		RenewalsInFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "token_broker_renewals_in_flight",
				Help: "Current number of silent renewals awaiting a response",
			},
		),
		LoginsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "token_broker_logins_total",
				Help: "Total number of interactive logins started",
			},
		),
		CallbacksTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_broker_callbacks_total",
				Help: "Total number of authorization responses processed",
			},
			[]string{"request_type", "outcome"},
		),

		HTTPRequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_broker_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "token_broker_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "token_broker_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),
	}

	return m
}

// Handler returns an HTTP handler for serving Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		Registry:          m.Registry,
		EnableOpenMetrics: true,
	})
}

// CacheLookup records a token cache lookup.
func (m *Metrics) CacheLookup(hit bool) {
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RenewalStarted records a silent renewal handed to the frame broker.
func (m *Metrics) RenewalStarted(kind string) {
	m.RenewalsTotal.WithLabelValues(kind).Inc()
	m.RenewalsInFlight.Inc()
}

// RenewalFinished records the end of a silent renewal.
func (m *Metrics) RenewalFinished(outcome string) {
	m.RenewalResultsTotal.WithLabelValues(outcome).Inc()
	m.RenewalsInFlight.Dec()
}

// LoginStarted records an interactive login.
func (m *Metrics) LoginStarted() {
	m.LoginsTotal.Inc()
}

// CallbackProcessed records an authorization response run through the engine.
func (m *Metrics) CallbackProcessed(requestType, outcome string) {
	m.CallbacksTotal.WithLabelValues(requestType, outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordHTTPDuration records HTTP request duration.
func (m *Metrics) RecordHTTPDuration(method, path string, duration float64) {
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}
