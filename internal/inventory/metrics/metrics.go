package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for stock keeping.
type Metrics struct {
	ProductsCreated *prometheus.CounterVec
	Movements       *prometheus.CounterVec
	StockRejections prometheus.Counter
	WriteRetries    prometheus.Counter
}

// New registers the inventory metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		ProductsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dlvery_inventory_products_created_total",
			Help: "Products created, by category",
		}, []string{"category"}),
		Movements: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dlvery_inventory_movements_total",
			Help: "Stock movements recorded, by type",
		}, []string{"type"}),
		StockRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dlvery_inventory_stock_rejections_total",
			Help: "Outbound movements rejected for insufficient stock",
		}),
		WriteRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dlvery_inventory_write_retries_total",
			Help: "Product writes retried after losing a concurrent update or SKU race",
		}),
	}
}

func (m *Metrics) IncrementCreated(category string) {
	m.ProductsCreated.WithLabelValues(category).Inc()
}

func (m *Metrics) IncrementMovement(movementType string) {
	m.Movements.WithLabelValues(movementType).Inc()
}

func (m *Metrics) IncrementStockRejection() {
	m.StockRejections.Inc()
}

func (m *Metrics) IncrementRetry() {
	m.WriteRetries.Inc()
}
