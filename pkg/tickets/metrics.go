package tickets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicketsOpened is the total number of tickets created.
	TicketsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportbot_tickets_opened_total",
			Help: "Total number of tickets opened",
		},
		[]string{"ticket_type"},
	)

	// TicketsClosed is the total number of tickets closed.
	TicketsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "supportbot_tickets_closed_total",
			Help: "Total number of tickets closed",
		},
	)

	// TicketsReopened is the total number of tickets reopened.
	TicketsReopened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "supportbot_tickets_reopened_total",
			Help: "Total number of tickets reopened",
		},
	)
)
