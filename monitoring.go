package medlock

import "github.com/hengadev/medlock/internal/monitoring"

type (
	// MetricsCollector receives operation counters and timings.
	MetricsCollector = monitoring.MetricsCollector
	// ObservabilityHook receives the start and end of every Client operation.
	ObservabilityHook = monitoring.ObservabilityHook

	InMemoryMetricsCollector = monitoring.InMemoryMetricsCollector
	NoOpMetricsCollector     = monitoring.NoOpMetricsCollector
	NoOpObservabilityHook    = monitoring.NoOpObservabilityHook
)

// NewInMemoryMetricsCollector creates a collector that keeps every metric in memory.
func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	return monitoring.NewInMemoryMetricsCollector()
}

// Metric names emitted by the client.
const (
	MetricOperationStarted   = "medlock.operation.started"
	MetricOperationSucceeded = "medlock.operation.succeeded"
	MetricOperationFailed    = "medlock.operation.failed"
	MetricOperationDuration  = "medlock.operation.duration"
	MetricOperationRetries   = "medlock.operation.retries"
)
