// Package metrics defines the Prometheus instruments for the dispatch
// engine. Instruments are package-level and registered once at startup.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loodlijn",
			Subsystem: "dispatch",
			Name:      "messages_processed_total",
			Help:      "Customer messages processed, by urgency tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)

	RoutingDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loodlijn",
			Subsystem: "dispatch",
			Name:      "routing_decisions_total",
			Help:      "Backend routing decisions, by backend and reason.",
		},
		[]string{"backend", "reason"},
	)

	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "loodlijn",
			Subsystem: "dispatch",
			Name:      "backend_latency_seconds",
			Help:      "Model backend completion latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 25},
		},
		[]string{"backend", "model"},
	)

	BackendTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loodlijn",
			Subsystem: "dispatch",
			Name:      "backend_tokens_total",
			Help:      "Tokens consumed by model backends.",
		},
		[]string{"backend", "direction"},
	)

	BackendFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loodlijn",
			Subsystem: "dispatch",
			Name:      "backend_fallbacks_total",
			Help:      "Times the last-resort backend took over from a primary.",
		},
		[]string{"primary_model"},
	)

	BookingTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loodlijn",
			Subsystem: "dispatch",
			Name:      "booking_triggers_total",
			Help:      "Turns that triggered the booking flow, by urgency tier.",
		},
		[]string{"tier"},
	)

	StoreConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "loodlijn",
			Subsystem: "dispatch",
			Name:      "store_conflicts_total",
			Help:      "Conversation store compare-and-swap conflicts.",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "loodlijn",
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Jobs waiting in the in-memory dispatch queue.",
		},
	)
)

// RegisterMetrics registers every instrument on the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		MessagesProcessed,
		RoutingDecisions,
		BackendLatency,
		BackendTokens,
		BackendFallbacks,
		BookingTriggers,
		StoreConflicts,
		QueueDepth,
	)
}
