package placement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlacementsTotal counts accepted placements by bet type.
	PlacementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsbook_placements_total",
			Help: "Total number of accepted bet placements, by bet type",
		},
		[]string{"bet_type"},
	)

	// DuplicatePlacementsTotal counts idempotency key replays.
	DuplicatePlacementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsbook_placements_duplicate_total",
		Help: "Total number of placements answered from an idempotency key replay",
	})

	// StakePlaced tracks the total stake of accepted placements.
	StakePlaced = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sportsbook_placement_stake_dollars",
		Help:    "Total stake per accepted placement",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 10000},
	})
)
