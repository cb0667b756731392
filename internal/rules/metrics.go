package rules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ViolationsTotal tracks rejected bet constructions by rule. The
	// validator itself is pure; placement increments this when a ticket
	// is rejected.
	ViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsbook_validation_violations_total",
			Help: "Total number of bet construction rule violations",
		},
		[]string{"rule"},
	)
)
