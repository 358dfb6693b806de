package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the validation module.
type Metrics struct {
	// Per-rule evaluation latencies
	RuleLatency *prometheus.HistogramVec

	// Rule outcomes by rule and status
	RuleOutcome *prometheus.CounterVec

	// Overall validation latency including report generation
	ValidateLatency prometheus.Histogram

	// Submission outcomes by overall status
	SubmissionOutcome *prometheus.CounterVec

	// Extraction confidence averages per submission
	ConfidenceAverage prometheus.Histogram
}

// New creates a new Metrics instance with all validation module metrics registered.
func New() *Metrics {
	return &Metrics{
		RuleLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cruce_validation_rule_duration_seconds",
			Help:    "Duration of individual rule evaluations by rule",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		}, []string{"rule"}), // rule: "R1".."R5"

		RuleOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cruce_validation_rule_outcomes_total",
			Help: "Total rule outcomes by rule and status",
		}, []string{"rule", "status"}),

		ValidateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cruce_validation_duration_seconds",
			Help:    "Duration of full submission validation including report generation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),

		SubmissionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cruce_validation_submissions_total",
			Help: "Total validated submissions by overall status",
		}, []string{"status"}),

		ConfidenceAverage: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cruce_validation_confidence_average",
			Help:    "Average extraction confidence per submission",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		}),
	}
}

// ObserveRuleLatency records the duration of one rule evaluation.
func (m *Metrics) ObserveRuleLatency(rule string, d time.Duration) {
	if m != nil {
		m.RuleLatency.WithLabelValues(rule).Observe(d.Seconds())
	}
}

// IncrementRuleOutcome records a rule outcome.
func (m *Metrics) IncrementRuleOutcome(rule, status string) {
	if m != nil {
		m.RuleOutcome.WithLabelValues(rule, status).Inc()
	}
}

// ObserveValidateLatency records the total validation duration.
func (m *Metrics) ObserveValidateLatency(d time.Duration) {
	if m != nil {
		m.ValidateLatency.Observe(d.Seconds())
	}
}

// IncrementSubmission records a submission's overall status.
func (m *Metrics) IncrementSubmission(status string) {
	if m != nil {
		m.SubmissionOutcome.WithLabelValues(status).Inc()
	}
}

// ObserveConfidenceAverage records the submission's average extraction confidence.
func (m *Metrics) ObserveConfidenceAverage(v float64) {
	if m != nil {
		m.ConfidenceAverage.Observe(v)
	}
}
