package expand

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExpansionsTotal tracks compound ticket expansions by product.
	ExpansionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsbook_expansions_total",
			Help: "Total number of compound bet expansions",
		},
		[]string{"product"},
	)

	// WagersGenerated tracks how many constituent wagers each expansion
	// produced.
	WagersGenerated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sportsbook_expansion_wagers_generated",
		Help:    "Constituent wagers generated per compound bet expansion",
		Buckets: []float64{1, 2, 3, 6, 10, 15, 24, 35, 56, 70},
	})
)
