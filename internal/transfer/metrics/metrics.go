package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the transfer lifecycle manager.
type Metrics struct {
	Initiated        prometheus.Counter
	Completed        prometheus.Counter
	Cancelled        prometheus.Counter
	Rejected         prometheus.Counter
	FeesSettled      prometheus.Counter
	CompleteDuration prometheus.Histogram
}

// New creates a Metrics instance with all transfer metrics registered.
func New() *Metrics {
	return &Metrics{
		Initiated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_transfers_initiated_total",
			Help: "Total number of transfers initiated",
		}),
		Completed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_transfers_completed_total",
			Help: "Total number of transfers completed",
		}),
		Cancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_transfers_cancelled_total",
			Help: "Total number of transfers cancelled",
		}),
		Rejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_transfers_rejected_total",
			Help: "Total number of transfer initiations rejected by validation",
		}),
		FeesSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_transfer_fees_settled_total",
			Help: "Total fee volume settled through the budget ledger",
		}),
		CompleteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mercato_transfer_complete_duration_seconds",
			Help:    "Duration of transfer completion transactions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveComplete records the duration of a Complete operation.
func (m *Metrics) ObserveComplete(start time.Time) {
	m.CompleteDuration.Observe(time.Since(start).Seconds())
}

// AddFeesSettled records settled fee volume.
func (m *Metrics) AddFeesSettled(amount int64) {
	if amount > 0 {
		m.FeesSettled.Add(float64(amount))
	}
}
