package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GamesHandledTotal counts game-finished events processed.
	GamesHandledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsbook_settlement_games_handled_total",
		Help: "Total number of game-finished events handled",
	})

	// BetsSettledTotal counts bets settled, by terminal status.
	BetsSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsbook_settlement_bets_settled_total",
			Help: "Total number of bets settled, by terminal status",
		},
		[]string{"status"},
	)

	// BetsDeferredTotal counts settlement attempts deferred because a
	// referenced game had not finished.
	BetsDeferredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsbook_settlement_bets_deferred_total",
		Help: "Total number of settlement attempts deferred pending results",
	})

	// AlreadySettledTotal counts settlements skipped by the status guard.
	AlreadySettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsbook_settlement_already_settled_total",
		Help: "Total number of settlements skipped because the bet was already terminal",
	})

	// RetriesTotal counts transient settlement failures that were retried.
	RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsbook_settlement_retries_total",
		Help: "Total number of settlement retries after transient failures",
	})

	// OperatorAlertsTotal counts bets parked in processing for manual
	// review after exhausting retries on missing result data.
	OperatorAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsbook_settlement_operator_alerts_total",
		Help: "Total number of bets requiring operator intervention",
	})

	// SettleDuration tracks per-game settlement latency.
	SettleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sportsbook_settlement_duration_seconds",
		Help:    "Time to settle all pending bets for one game",
		Buckets: prometheus.DefBuckets,
	})
)
