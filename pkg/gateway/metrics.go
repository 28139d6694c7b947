package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes as recorded in metrics.
const (
	outcomeOK          = "ok"
	outcomeCached      = "cached"
	outcomeDegraded    = "degraded"
	outcomeRateLimited = "rate_limited"
	outcomeError       = "error"
)

// Metrics holds the gateway's Prometheus instruments.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	cacheEvents     *prometheus.CounterVec
}

// NewMetrics builds and registers the gateway instruments on reg.
// Pass a fresh registry per instance; the gateway holds no global
// metric state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aigateway_requests_total",
			Help: "Gateway operations by outcome.",
		}, []string{"operation", "outcome"}),
		backendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aigateway_backend_duration_seconds",
			Help:    "Latency of backend calls in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aigateway_cache_events_total",
			Help: "Response cache lookups by result.",
		}, []string{"operation", "result"}),
	}

	if reg != nil {
		reg.MustRegister(m.requestsTotal, m.backendDuration, m.cacheEvents)
	}
	return m
}

func (m *Metrics) observeRequest(operation, outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) observeBackend(operation string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backendDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) observeCache(operation, result string) {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues(operation, result).Inc()
}
