package monitoring

import (
	"context"
	"log/slog"
	"time"
)

// ObservabilityHook receives the lifecycle of every client operation.
// Attributes never carry keys, signatures or plaintext.
type ObservabilityHook interface {
	// Called before the operation starts
	OnOperationStart(ctx context.Context, operation string, attrs map[string]any)

	// Called after the operation completes (success or failure)
	OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, attrs map[string]any)

	// Called when an operation retries a step, such as a counter rescan
	OnRetry(ctx context.Context, operation string, attempt int, err error)
}

// ErrorClassifier names the class of an error for logs and metric tags.
type ErrorClassifier func(error) string

func defaultClassifier(err error) string {
	if err == nil {
		return ""
	}
	return "error"
}

// NoOpObservabilityHook is a no-op implementation of ObservabilityHook
type NoOpObservabilityHook struct{}

func (NoOpObservabilityHook) OnOperationStart(context.Context, string, map[string]any) {}
func (NoOpObservabilityHook) OnOperationComplete(context.Context, string, time.Duration, error, map[string]any) {
}
func (NoOpObservabilityHook) OnRetry(context.Context, string, int, error) {}

// LoggingObservabilityHook writes operations to a slog logger.
type LoggingObservabilityHook struct {
	logger   *slog.Logger
	classify ErrorClassifier
}

// NewLoggingObservabilityHook creates a new logging observability hook
func NewLoggingObservabilityHook(logger *slog.Logger, classify ErrorClassifier) *LoggingObservabilityHook {
	if logger == nil {
		logger = NopLogger()
	}
	if classify == nil {
		classify = defaultClassifier
	}
	return &LoggingObservabilityHook{logger: logger, classify: classify}
}

func attrsOf(attrs map[string]any) []any {
	args := make([]any, 0, len(attrs)*2)
	for k, v := range attrs {
		args = append(args, k, v)
	}
	return args
}

func (l *LoggingObservabilityHook) OnOperationStart(ctx context.Context, operation string, attrs map[string]any) {
	l.logger.DebugContext(ctx, "operation started", append([]any{"operation", operation}, attrsOf(attrs)...)...)
}

func (l *LoggingObservabilityHook) OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, attrs map[string]any) {
	args := append([]any{
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	}, attrsOf(attrs)...)
	if err != nil {
		args = append(args, "error", err.Error(), "error_class", l.classify(err))
		l.logger.WarnContext(ctx, "operation failed", args...)
		return
	}
	l.logger.InfoContext(ctx, "operation completed", args...)
}

func (l *LoggingObservabilityHook) OnRetry(ctx context.Context, operation string, attempt int, err error) {
	l.logger.DebugContext(ctx, "operation retrying",
		"operation", operation,
		"attempt", attempt,
		"error_class", l.classify(err))
}

// MetricsObservabilityHook collects metrics for operations
type MetricsObservabilityHook struct {
	collector MetricsCollector
	classify  ErrorClassifier
}

// NewMetricsObservabilityHook creates a new metrics observability hook
func NewMetricsObservabilityHook(collector MetricsCollector, classify ErrorClassifier) *MetricsObservabilityHook {
	if collector == nil {
		collector = NoOpMetricsCollector{}
	}
	if classify == nil {
		classify = defaultClassifier
	}
	return &MetricsObservabilityHook{collector: collector, classify: classify}
}

func (m *MetricsObservabilityHook) OnOperationStart(ctx context.Context, operation string, attrs map[string]any) {
	m.collector.IncrementCounter("medlock.operation.started", map[string]string{"operation": operation})
}

func (m *MetricsObservabilityHook) OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, attrs map[string]any) {
	tags := map[string]string{"operation": operation}
	if err != nil {
		tags["status"] = "error"
		m.collector.IncrementCounter("medlock.operation.failed", map[string]string{
			"operation":   operation,
			"error_class": m.classify(err),
		})
	} else {
		tags["status"] = "success"
		m.collector.IncrementCounter("medlock.operation.succeeded", map[string]string{"operation": operation})
	}
	m.collector.RecordTiming("medlock.operation.duration", duration, tags)
}

func (m *MetricsObservabilityHook) OnRetry(ctx context.Context, operation string, attempt int, err error) {
	m.collector.IncrementCounter("medlock.operation.retries", map[string]string{"operation": operation})
}

// CompositeObservabilityHook combines multiple hooks
type CompositeObservabilityHook struct {
	hooks []ObservabilityHook
}

// NewCompositeObservabilityHook creates a new composite hook
func NewCompositeObservabilityHook(hooks ...ObservabilityHook) *CompositeObservabilityHook {
	return &CompositeObservabilityHook{hooks: hooks}
}

func (c *CompositeObservabilityHook) OnOperationStart(ctx context.Context, operation string, attrs map[string]any) {
	for _, hook := range c.hooks {
		hook.OnOperationStart(ctx, operation, attrs)
	}
}

func (c *CompositeObservabilityHook) OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, attrs map[string]any) {
	for _, hook := range c.hooks {
		hook.OnOperationComplete(ctx, operation, duration, err, attrs)
	}
}

func (c *CompositeObservabilityHook) OnRetry(ctx context.Context, operation string, attempt int, err error) {
	for _, hook := range c.hooks {
		hook.OnRetry(ctx, operation, attempt, err)
	}
}
