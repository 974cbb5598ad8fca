package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for roster operations.
type Metrics struct {
	PlayersRegistered prometheus.Counter
	ClubsRegistered   prometheus.Counter
	Valuations        prometheus.Counter
}

// New creates a Metrics instance with all roster metrics registered.
func New() *Metrics {
	return &Metrics{
		PlayersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_players_registered_total",
			Help: "Total number of players registered",
		}),
		ClubsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_clubs_registered_total",
			Help: "Total number of clubs registered",
		}),
		Valuations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mercato_valuations_computed_total",
			Help: "Total number of on-demand market valuations computed",
		}),
	}
}
