package cdc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the change capture bus.
type Metrics struct {
	Captured          prometheus.Counter
	Deduplicated      prometheus.Counter
	SubscriberDropped prometheus.Counter
	SinkErrors        prometheus.Counter
}

// NewMetrics creates a Metrics instance with all bus metrics registered.
func NewMetrics() *Metrics {
	return &Metrics{
		Captured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_cdc_changes_captured_total",
			Help: "Total number of changes captured from store feeds",
		}),
		Deduplicated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_cdc_changes_deduplicated_total",
			Help: "Total number of redelivered changes dropped by deduplication",
		}),
		SubscriberDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_cdc_subscriber_dropped_total",
			Help: "Total number of publications dropped because a subscriber channel was full",
		}),
		SinkErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_cdc_sink_errors_total",
			Help: "Total number of non-fatal sink publication failures",
		}),
	}
}
