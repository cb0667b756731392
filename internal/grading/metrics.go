package grading

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LegsGradedTotal tracks graded legs by outcome. Grading is pure;
	// the settlement orchestrator increments these after a grade lands.
	LegsGradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsbook_legs_graded_total",
			Help: "Total number of legs graded, by outcome",
		},
		[]string{"outcome"},
	)

	// BetsGradedTotal tracks graded bets by terminal status.
	BetsGradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsbook_bets_graded_total",
			Help: "Total number of bets graded, by terminal status",
		},
		[]string{"status"},
	)

	// GradingIncompleteTotal tracks grades deferred because a game was not
	// finished or result data was missing.
	GradingIncompleteTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsbook_grading_incomplete_total",
		Help: "Total number of grading attempts deferred as incomplete",
	})
)
