// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TurnDuration tracks end-to-end processing of one inbound message.
	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conversation_turn_duration_seconds",
			Help:    "Inbound message processing duration",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"outcome"},
	)

	// TurnsTotal tracks processed turns by the step they started in.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Total processed inbound messages",
		},
		[]string{"step", "outcome"},
	)

	// StepTransitionsTotal tracks step changes.
	StepTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_step_transitions_total",
			Help: "Total conversation step transitions",
		},
		[]string{"from", "to"},
	)

	// EntityDecisionsTotal tracks validator decisions per entity kind.
	EntityDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_decisions_total",
			Help: "Extracted entities accepted or dropped",
		},
		[]string{"kind", "decision"},
	)

	// ExtractionDuration tracks extraction collaborator latency.
	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extraction_duration_seconds",
			Help:    "Entity extraction call duration",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"provider", "status"},
	)

	// ExtractionFallbacksTotal tracks turns that fell back to deterministic parsing.
	ExtractionFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_fallbacks_total",
			Help: "Turns where extraction was unavailable",
		},
		[]string{"reason"},
	)

	// CatalogLookupsTotal tracks catalog lookups by scope and match level.
	CatalogLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_lookups_total",
			Help: "Catalog lookups by scope and match level",
		},
		[]string{"scope", "level"},
	)

	// QuotesTotal tracks generated and accepted quotes.
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotes_total",
			Help: "Quotes by lifecycle event",
		},
		[]string{"event"},
	)

	// StoreConflictsTotal tracks optimistic concurrency retries in the conversation store.
	StoreConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_store_conflicts_total",
			Help: "Conversation store write conflicts",
		},
		[]string{"driver"},
	)

	// StreamConnections tracks open event stream connections.
	StreamConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_stream_connections",
			Help: "Number of active event stream connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTurn records metrics for one processed message.
func RecordTurn(step, outcome string, duration float64) {
	TurnsTotal.WithLabelValues(step, outcome).Inc()
	TurnDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordTransition records a step change.
func RecordTransition(from, to string) {
	StepTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordEntity records a validator decision.
func RecordEntity(kind, decision string) {
	EntityDecisionsTotal.WithLabelValues(kind, decision).Inc()
}

// RecordExtraction records an extraction call.
func RecordExtraction(provider, status string, duration float64) {
	ExtractionDuration.WithLabelValues(provider, status).Observe(duration)
}

// RecordLookup records a catalog lookup.
func RecordLookup(scope, level string) {
	CatalogLookupsTotal.WithLabelValues(scope, level).Inc()
}

// IncrementStreamConnections increments the open event stream gauge.
func IncrementStreamConnections() {
	StreamConnections.Inc()
}

// DecrementStreamConnections decrements the open event stream gauge.
func DecrementStreamConnections() {
	StreamConnections.Dec()
}
