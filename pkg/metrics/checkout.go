package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout results.
const (
	CheckoutResultSuccess  = "success"
	CheckoutResultRejected = "rejected"
	CheckoutResultFailed   = "failed"
	CheckoutResultPartial  = "partial"
)

// CheckoutMetrics records order materialization outcomes.
type CheckoutMetrics struct {
	outcomes *prometheus.CounterVec
	partial  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout submissions by result.",
	}, []string{"result"})
	partial := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_partial_failures_total",
		Help: "Checkouts that left an order behind without completing, by failing step.",
	}, []string{"step"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of order materialization in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(outcomes, partial, duration)
	return &CheckoutMetrics{
		outcomes: outcomes,
		partial:  partial,
		duration: duration,
	}
}

// IncOutcome increments the outcome counter for result.
func (c *CheckoutMetrics) IncOutcome(result string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncPartialFailure records an orphaned order at the named step.
func (c *CheckoutMetrics) IncPartialFailure(step string) {
	if c == nil || c.partial == nil {
		return
	}
	c.partial.WithLabelValues(normalizeLabel(step)).Inc()
}

// ObserveDuration records how long a submission took.
func (c *CheckoutMetrics) ObserveDuration(d time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.Observe(d.Seconds())
}
