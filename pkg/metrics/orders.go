package metrics

import "github.com/prometheus/client_golang/prometheus"

// Order flows.
const (
	FlowCart   = "cart"
	FlowBuyNow = "buy_now"
)

// OrderMetrics tracks placed orders and stock rejections.
type OrderMetrics struct {
	placed   *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_placed_total",
		Help:      "Orders committed, by flow.",
	}, []string{"flow"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_rejected_total",
		Help:      "Order attempts rejected before commit, by flow and error code.",
	}, []string{"flow", "code"})
	reg.MustRegister(placed, rejected)
	return &OrderMetrics{placed: placed, rejected: rejected}
}

// IncPlaced counts a committed order.
func (m *OrderMetrics) IncPlaced(flow string) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.WithLabelValues(normalizeLabel(flow)).Inc()
}

// IncRejected counts an order attempt that did not commit.
func (m *OrderMetrics) IncRejected(flow, code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(flow), normalizeLabel(code)).Inc()
}
