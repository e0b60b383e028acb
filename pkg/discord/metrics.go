package discord

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BestEffortFailures counts discarded failures of outbound platform effects.
var BestEffortFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "supportbot_best_effort_failures_total",
		Help: "Total number of outbound platform effects that failed and were discarded",
	},
	[]string{"effect"},
)
