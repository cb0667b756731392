package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsConsumedTotal counts game-finished events accepted off the wire.
	EventsConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsbook_queue_events_consumed_total",
		Help: "Total number of game-finished events consumed",
	})

	// EventErrorsTotal counts consume failures by phase (read, decode).
	EventErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsbook_queue_event_errors_total",
			Help: "Total number of event consume failures, by phase",
		},
		[]string{"phase"},
	)
)
