package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the contract lifecycle manager.
type Metrics struct {
	Created        prometheus.Counter
	Terminated     prometheus.Counter
	Renewed        prometheus.Counter
	Expired        prometheus.Counter
	SweepFailures  prometheus.Counter
	RenewDuration  prometheus.Histogram
	CreateDuration prometheus.Histogram
}

// New creates a Metrics instance with all contract metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_contracts_created_total",
			Help: "Total number of contracts created",
		}),
		Terminated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_contracts_terminated_total",
			Help: "Total number of contracts terminated",
		}),
		Renewed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_contracts_renewed_total",
			Help: "Total number of contracts renewed",
		}),
		Expired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_contracts_expired_total",
			Help: "Total number of contracts expired by the sweep",
		}),
		SweepFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_contract_sweep_failures_total",
			Help: "Total number of contracts skipped by the expiry sweep due to errors",
		}),
		RenewDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mercato_contract_renew_duration_seconds",
			Help:    "Duration of contract renewal transactions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mercato_contract_create_duration_seconds",
			Help:    "Duration of contract creation transactions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveCreate records the duration of a Create operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}

// ObserveRenew records the duration of a Renew operation.
func (m *Metrics) ObserveRenew(start time.Time) {
	m.RenewDuration.Observe(time.Since(start).Seconds())
}
