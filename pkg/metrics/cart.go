package metrics

import "github.com/prometheus/client_golang/prometheus"

// Cart mutation results.
const (
	CartResultSuccess   = "success"
	CartResultError     = "error"
	CartResultDiscarded = "discarded"
)

// CartMetrics tracks cart store activity.
type CartMetrics struct {
	mutations *prometheus.CounterVec
	stores    prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart operations by op and result.",
	}, []string{"op", "result"})
	stores := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_open_stores",
		Help: "Cart stores currently held in memory.",
	})
	reg.MustRegister(mutations, stores)
	return &CartMetrics{mutations: mutations, stores: stores}
}

// IncMutation counts one cart operation.
func (c *CartMetrics) IncMutation(op, result string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

// SetOpenStores reports the number of live cart stores.
func (c *CartMetrics) SetOpenStores(n int) {
	if c == nil || c.stores == nil {
		return
	}
	c.stores.Set(float64(n))
}
