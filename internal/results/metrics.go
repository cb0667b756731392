package results

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal counts feed fetches by outcome (ok, not_found, error).
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsbook_result_fetches_total",
			Help: "Total number of game result fetches, by outcome",
		},
		[]string{"outcome"},
	)

	// CacheHitsTotal counts result cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsbook_result_cache_hits_total",
		Help: "Total number of game result cache hits",
	})

	// CacheMissesTotal counts result cache misses.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsbook_result_cache_misses_total",
		Help: "Total number of game result cache misses",
	})
)
