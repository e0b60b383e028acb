package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
	outcomeUnknown  = "unknown"
)

var (
	// GatewayEventsTotal counts gateway events by type.
	GatewayEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_gateway_events_total", AppName),
			Help: "Total number of gateway events received",
		},
		[]string{"event"},
	)

	HttpTotalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_http_total_requests", AppName),
			Help: "Total number of requests to the monitoring server",
		},
		[]string{"path", "method", "status_code"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_http_request_duration_seconds", AppName),
			Help:    "Duration of requests to the monitoring server",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status_code"},
	)

	// JoinedGuilds is the number of guilds the bot is in.
	JoinedGuilds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_joined_guilds", AppName),
			Help: "Number of guilds the bot is a member of",
		},
	)

	// InteractionDuration is the time from receiving an interaction to having its reply ready.
	InteractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_interaction_duration_seconds", AppName),
			Help:    "Duration of slash commands and button presses",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"interaction"},
	)

	// InteractionsTotal counts interactions by how they ended.
	InteractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_interactions_total", AppName),
			Help: "Total number of interactions by outcome",
		},
		[]string{"interaction", "outcome"},
	)
)
