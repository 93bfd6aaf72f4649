package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the delivery module.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	DashboardBuckets  *prometheus.HistogramVec
	DefaultedRecords  prometheus.Counter
	SignatureUploads  *prometheus.CounterVec
	DashboardDuration prometheus.Histogram
}

// New registers the delivery metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dlvery_delivery_transitions_total",
			Help: "Status transitions attempted, by source, target and outcome",
		}, []string{"from", "to", "outcome"}),
		DashboardBuckets: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dlvery_dashboard_bucket_size",
			Help:    "Number of deliveries in each dashboard bucket per request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}, []string{"bucket"}),
		DefaultedRecords: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dlvery_dashboard_defaulted_records_total",
			Help: "Deliveries without a scheduled time placed in today's bucket",
		}),
		SignatureUploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dlvery_signature_uploads_total",
			Help: "Signatures stored, by source (image or strokes)",
		}, []string{"source"}),
		DashboardDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dlvery_dashboard_duration_seconds",
			Help:    "Duration of dashboard assembly including both store queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementTransition records a transition attempt. Outcome is accepted,
// rejected or conflict.
func (m *Metrics) IncrementTransition(from, to, outcome string) {
	m.Transitions.WithLabelValues(from, to, outcome).Inc()
}

// ObserveDashboard records bucket sizes and the defaulted count of one dashboard build.
func (m *Metrics) ObserveDashboard(start time.Time, today, pending, defaulted int) {
	m.DashboardDuration.Observe(time.Since(start).Seconds())
	m.DashboardBuckets.WithLabelValues("today").Observe(float64(today))
	m.DashboardBuckets.WithLabelValues("pending").Observe(float64(pending))
	m.DefaultedRecords.Add(float64(defaulted))
}

// IncrementSignatureUpload records a stored signature.
func (m *Metrics) IncrementSignatureUpload(source string) {
	m.SignatureUploads.WithLabelValues(source).Inc()
}
