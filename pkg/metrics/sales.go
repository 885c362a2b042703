package metrics

import "github.com/prometheus/client_golang/prometheus"

// SaleMetrics records point-of-sale outcomes and stock movement.
type SaleMetrics struct {
	created   *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	unitsSold prometheus.Counter
	restocked *prometheus.CounterVec
}

// NewSaleMetrics registers the sale metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewSaleMetrics(reg prometheus.Registerer) *SaleMetrics {
	if reg == nil {
		return &SaleMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_sales_created_total",
		Help: "Sales committed, by payment method.",
	}, []string{"payment_method"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_sales_rejected_total",
		Help: "Sale creations rejected, by error code.",
	}, []string{"reason"})
	unitsSold := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pharmacy_inventory_units_sold_total",
		Help: "Inventory units decremented by sales.",
	})
	restocked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_inventory_units_restocked_total",
		Help: "Inventory units returned to stock, by trigger.",
	}, []string{"trigger"})
	reg.MustRegister(created, rejected, unitsSold, restocked)
	return &SaleMetrics{
		created:   created,
		rejected:  rejected,
		unitsSold: unitsSold,
		restocked: restocked,
	}
}

// SaleCreated counts a committed sale and the units it took from stock.
func (m *SaleMetrics) SaleCreated(paymentMethod string, units int) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
	m.unitsSold.Add(float64(units))
}

// SaleRejected counts a failed sale creation.
func (m *SaleMetrics) SaleRejected(reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// Restocked counts units returned to inventory by a delete or refund.
func (m *SaleMetrics) Restocked(trigger string, units int) {
	if m == nil || m.restocked == nil || units <= 0 {
		return
	}
	m.restocked.WithLabelValues(normalizeLabel(trigger)).Add(float64(units))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
