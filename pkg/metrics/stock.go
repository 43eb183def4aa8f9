package metrics

import "github.com/prometheus/client_golang/prometheus"

// StockMetrics records counters for the inventory ledger.
type StockMetrics struct {
	movements         *prometheus.CounterVec
	insufficientStock prometheus.Counter
	reconcileRetries  prometheus.Histogram
	voidedEntries     prometheus.Counter
	lowStockParts     prometheus.Gauge
}

// NewStockMetrics registers the ledger metrics on the provided registerer.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetparts",
		Subsystem: "stock",
		Name:      "movements_total",
		Help:      "Ledger entries recorded, by direction and category.",
	}, []string{"direction", "category"})
	insufficient := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fleetparts",
		Subsystem: "stock",
		Name:      "insufficient_stock_total",
		Help:      "Outbound movements rejected for insufficient stock.",
	})
	retries := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fleetparts",
		Subsystem: "stock",
		Name:      "reconcile_retries",
		Help:      "Version conflicts retried per reconciliation.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8},
	})
	voided := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fleetparts",
		Subsystem: "stock",
		Name:      "voided_entries_total",
		Help:      "Ledger entries voided by privileged users.",
	})
	lowStock := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fleetparts",
		Subsystem: "stock",
		Name:      "low_stock_parts",
		Help:      "Parts at or below their safety threshold at last scan.",
	})
	reg.MustRegister(movements, insufficient, retries, voided, lowStock)
	return &StockMetrics{
		movements:         movements,
		insufficientStock: insufficient,
		reconcileRetries:  retries,
		voidedEntries:     voided,
		lowStockParts:     lowStock,
	}
}

// IncMovement counts a recorded ledger entry.
func (s *StockMetrics) IncMovement(direction, category string) {
	if s == nil || s.movements == nil {
		return
	}
	s.movements.WithLabelValues(direction, category).Inc()
}

// IncInsufficientStock counts a rejected outbound movement.
func (s *StockMetrics) IncInsufficientStock() {
	if s == nil || s.insufficientStock == nil {
		return
	}
	s.insufficientStock.Inc()
}

// ObserveReconcileRetries records how many version conflicts a reconcile hit.
func (s *StockMetrics) ObserveReconcileRetries(retries int) {
	if s == nil || s.reconcileRetries == nil {
		return
	}
	s.reconcileRetries.Observe(float64(retries))
}

// IncVoidedEntry counts a voided ledger entry.
func (s *StockMetrics) IncVoidedEntry() {
	if s == nil || s.voidedEntries == nil {
		return
	}
	s.voidedEntries.Inc()
}

// SetLowStockParts records the low stock part count from the latest scan.
func (s *StockMetrics) SetLowStockParts(count int) {
	if s == nil || s.lowStockParts == nil {
		return
	}
	s.lowStockParts.Set(float64(count))
}
