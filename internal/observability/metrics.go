package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adselect_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adselect_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// number of empty (no content / no eligible content) advertisements served
	EmptyAdCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adselect_empty_advertisements_total",
			Help: "Total empty advertisement responses",
		},
		[]string{"reason"},
	)

	// size of the eligible set per selection pass
	EligibleContentCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adselect_eligible_content",
			Help:    "Number of eligible content items per selection",
			Buckets: prometheus.LinearBuckets(0, 1, 16),
		},
	)

	// targeting group evaluation failures per marketplace
	PredicateFailureCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adselect_predicate_failures_total",
			Help: "Total predicate evaluation failures",
		},
		[]string{"marketplace"},
	)

	// latency of evaluating one targeting group
	TargetingEvalLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adselect_targeting_eval_duration_seconds",
			Help:    "Duration of targeting group evaluations",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)

	// number of events recorded, labelled by type
	EventCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adselect_events_total",
			Help: "Total events recorded",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		EmptyAdCount,
		EligibleContentCount,
		PredicateFailureCount,
		TargetingEvalLatency,
		EventCount,
	)
}
