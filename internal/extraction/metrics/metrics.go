package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the extraction pipeline.
type Metrics struct {
	// Upstream call latencies per image kind
	CallLatency *prometheus.HistogramVec

	// Call outcomes per image kind and result
	CallOutcome *prometheus.CounterVec

	// Circuit breaker state transitions
	BreakerTransitions *prometheus.CounterVec
}

// New creates a new Metrics instance with all extraction metrics registered.
func New() *Metrics {
	return &Metrics{
		CallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cruce_extraction_call_duration_seconds",
			Help:    "Duration of vision extraction calls by image kind",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90},
		}, []string{"kind"}),

		CallOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cruce_extraction_calls_total",
			Help: "Total vision extraction calls by image kind and result",
		}, []string{"kind", "result"}), // result: "ok", "degraded", "error"

		BreakerTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cruce_extraction_breaker_transitions_total",
			Help: "Circuit breaker state transitions by direction",
		}, []string{"direction"}), // direction: "opened", "closed"
	}
}

// ObserveCallLatency records the duration of one extraction call.
func (m *Metrics) ObserveCallLatency(kind string, d time.Duration) {
	if m != nil {
		m.CallLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// IncrementCallOutcome records an extraction call outcome.
func (m *Metrics) IncrementCallOutcome(kind, result string) {
	if m != nil {
		m.CallOutcome.WithLabelValues(kind, result).Inc()
	}
}

// IncrementBreakerTransition records a breaker state change.
func (m *Metrics) IncrementBreakerTransition(direction string) {
	if m != nil {
		m.BreakerTransitions.WithLabelValues(direction).Inc()
	}
}
