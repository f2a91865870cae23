package medlock

import (
	"fmt"
	"log/slog"
	"time"
)

// Option configures a Client.
type Option func(c *Client) error

// WithLogger sets the structured logger. Operations are logged through it at
// debug (start) and info or warn (completion).
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfiguration)
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector MetricsCollector) Option {
	return func(c *Client) error {
		if collector == nil {
			return fmt.Errorf("%w: metrics collector cannot be nil", ErrInvalidConfiguration)
		}
		c.metrics = collector
		return nil
	}
}

// WithObservabilityHook adds a hook next to the built-in logging and metrics hooks.
func WithObservabilityHook(hook ObservabilityHook) Option {
	return func(c *Client) error {
		if hook == nil {
			return fmt.Errorf("%w: observability hook cannot be nil", ErrInvalidConfiguration)
		}
		c.extraHooks = append(c.extraHooks, hook)
		return nil
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		if now == nil {
			return fmt.Errorf("%w: clock cannot be nil", ErrInvalidConfiguration)
		}
		c.now = now
		return nil
	}
}
