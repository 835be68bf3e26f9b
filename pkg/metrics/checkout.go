package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks checkout conversions and reservation rejections.
type CheckoutMetrics struct {
	duration     *prometheus.HistogramVec
	orders       *prometheus.CounterVec
	stockReject  prometheus.Counter
	reconcileErr prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"payment_method", "outcome"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Parent orders created, by payment method.",
	}, []string{"payment_method"})
	stockReject := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_stock_rejections_total",
		Help: "Checkout attempts rejected for insufficient stock.",
	})
	reconcileErr := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_reconciliation_failures_total",
		Help: "Paid sessions whose orders could not be finalized.",
	})
	reg.MustRegister(duration, orders, stockReject, reconcileErr)
	return &CheckoutMetrics{
		duration:     duration,
		orders:       orders,
		stockReject:  stockReject,
		reconcileErr: reconcileErr,
	}
}

// ObserveCheckout records one checkout attempt.
func (c *CheckoutMetrics) ObserveCheckout(method, outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncOrderCreated counts a successfully created parent order.
func (c *CheckoutMetrics) IncOrderCreated(method string) {
	if c == nil || c.orders == nil {
		return
	}
	c.orders.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncStockRejection counts a checkout rejected by the reservation engine.
func (c *CheckoutMetrics) IncStockRejection() {
	if c == nil || c.stockReject == nil {
		return
	}
	c.stockReject.Inc()
}

// IncReconciliationFailure counts a paid session that failed finalization.
func (c *CheckoutMetrics) IncReconciliationFailure() {
	if c == nil || c.reconcileErr == nil {
		return
	}
	c.reconcileErr.Inc()
}

// normalizeLabel keeps label cardinality bounded when a caller passes an
// empty value.
func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
