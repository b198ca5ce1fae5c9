package stateset

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle and
// reliability layers. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	attemptsTotal *prometheus.CounterVec
	retriesTotal  *prometheus.CounterVec

	circuitBreakerState *prometheus.GaugeVec
	rateLimiterTokens   *prometheus.GaugeVec

	deduplicationHits *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer, for callers that keep isolated registries.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateset_requests_total",
				Help: "Total number of logical API calls made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stateset_request_duration_seconds",
				Help:    "Duration of logical API calls in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stateset_requests_in_flight",
				Help: "Number of logical API calls currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		attemptsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateset_attempts_total",
				Help: "Total number of individual attempts, by outcome",
			},
			[]string{"operation", "outcome"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateset_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "endpoint", "attempt"},
		),
		circuitBreakerState: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stateset_circuit_breaker_state",
				Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		rateLimiterTokens: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stateset_rate_limiter_tokens",
				Help: "Tokens remaining in the current rate limiter window",
			},
			[]string{"name"},
		),
		deduplicationHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateset_deduplication_hits_total",
				Help: "Requests served by an identical in-flight request",
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateset_errors_total",
				Help: "Total number of errors by kind",
			},
			[]string{"kind", "method", "endpoint"},
		),
	}
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRequest records a completed logical call with its final status code
// (0 when the call never produced a response).
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, code, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, code, endpoint).Observe(duration.Seconds())
}

// RecordAttempt records one attempt of an operation with its outcome
// ("success", "failure", "rejected", "cancelled").
func (mc *MetricsCollector) RecordAttempt(operation, outcome string) {
	mc.attemptsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordRetry records a retry for the given attempt index.
func (mc *MetricsCollector) RecordRetry(method, endpoint string, attempt int) {
	mc.retriesTotal.WithLabelValues(method, endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordCircuitBreakerState records the breaker state transition.
func (mc *MetricsCollector) RecordCircuitBreakerState(name string, state CircuitState) {
	mc.circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordRateLimiterTokens records the tokens left in the current window.
func (mc *MetricsCollector) RecordRateLimiterTokens(name string, tokens int) {
	mc.rateLimiterTokens.WithLabelValues(name).Set(float64(tokens))
}

// RecordDeduplicationHit records a request served by a shared in-flight call.
func (mc *MetricsCollector) RecordDeduplicationHit(method, endpoint string) {
	mc.deduplicationHits.WithLabelValues(method, endpoint).Inc()
}

// RecordError records an error by kind.
func (mc *MetricsCollector) RecordError(kind, method, endpoint string) {
	mc.errorsTotal.WithLabelValues(kind, method, endpoint).Inc()
}
