package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Triage service metrics, registered on the default Prometheus registry.
var (
	TriageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_triage_requests_total",
			Help: "Triage calls by outcome (known_issue, new_issue, empty_description, error)",
		},
		[]string{"outcome"},
	)

	TriageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticket_triage_duration_seconds",
			Help:    "End-to-end triage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
	)

	// ExtractionFallbacksTotal counts model replies that were not valid JSON
	// and were replaced by default ticket fields.
	ExtractionFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_triage_extraction_fallbacks_total",
			Help: "LLM replies replaced by default ticket fields because they were not valid JSON",
		},
		[]string{"model"},
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_triage_llm_requests_total",
			Help: "LLM call attempts by status (success, retry, failure)",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticket_triage_llm_request_duration_seconds",
			Help:    "Duration of a single LLM call attempt in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"model"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticket_triage_kb_search_duration_seconds",
			Help:    "Knowledge-base similarity search duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"strategy"},
	)

	KnowledgeBaseRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ticket_triage_kb_records",
			Help: "Number of knowledge-base records loaded at startup",
		},
	)
)
