package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreLatency is the duration of state store queries.
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dataaccess_store_latency",
			Help: "Duration of state store queries",
		},
		[]string{"dal", "query", "backend", "domain"},
	)

	// StoreTotalRequests is the total number of state store requests.
	StoreTotalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataaccess_store_total_requests",
			Help: "Total number of state store requests",
		},
		[]string{"dal", "query", "backend", "domain"},
	)

	// StoreFallbacks is the number of times a call degraded to the file backend.
	StoreFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataaccess_store_fallbacks_total",
			Help: "Total number of state store calls that fell back to the file backend",
		},
		[]string{"query", "domain"},
	)

	// StoreMigrations is the number of documents imported from file into the primary backend.
	StoreMigrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataaccess_store_migrations_total",
			Help: "Total number of documents migrated from the file backend",
		},
		[]string{"domain"},
	)
)

// Observe starts the request counter and latency timer for a store call. The returned function
// stops the timer.
func Observe(dal, query, backend, domain string) func() {
	StoreTotalRequests.WithLabelValues(dal, query, backend, domain).Inc()
	t := prometheus.NewTimer(StoreLatency.WithLabelValues(dal, query, backend, domain))
	return func() {
		t.ObserveDuration()
	}
}
