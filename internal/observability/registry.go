package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Components receive a registry via dependency injection instead of touching
// the global Prometheus metrics directly, which keeps them testable.
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Selection outcome metrics
	IncrementEmptyAds(reason string)
	RecordEligibleContent(count int)

	// Targeting evaluation metrics
	IncrementPredicateFailures(marketplace string)
	RecordTargetingEvalLatency(duration time.Duration)

	// Event tracking metrics
	IncrementEvent(eventType string)
}

// PrometheusRegistry implements MetricsRegistry on the package-level
// Prometheus collectors.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementEmptyAds(reason string) {
	EmptyAdCount.WithLabelValues(reason).Inc()
}

func (r *PrometheusRegistry) RecordEligibleContent(count int) {
	EligibleContentCount.Observe(float64(count))
}

func (r *PrometheusRegistry) IncrementPredicateFailures(marketplace string) {
	PredicateFailureCount.WithLabelValues(marketplace).Inc()
}

func (r *PrometheusRegistry) RecordTargetingEvalLatency(duration time.Duration) {
	TargetingEvalLatency.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementEvent(eventType string) {
	EventCount.WithLabelValues(eventType).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing.
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry.
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementEmptyAds(reason string)                                      {}
func (r *NoOpRegistry) RecordEligibleContent(count int)                                      {}
func (r *NoOpRegistry) IncrementPredicateFailures(marketplace string)                        {}
func (r *NoOpRegistry) RecordTargetingEvalLatency(duration time.Duration)                    {}
func (r *NoOpRegistry) IncrementEvent(eventType string)                                      {}
