package reliability

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// RetryPolicy decides how often and how long to wait between attempts.
// Attempts are numbered from 0.
type RetryPolicy interface {
	NextDelay(attempt int) time.Duration
	ShouldRetry(err error, attempt int) bool
	MaxAttempts() int
}

// RetryConfig configures an ExponentialBackoffPolicy. Zero fields take the
// DefaultRetryConfig value; Jitter outside [0, 1] does too.
type RetryConfig struct {
	// MaxAttempts counts the first attempt.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter spreads each delay by up to ±Jitter of its value.
	Jitter      float64
	ShouldRetry func(err error, attempt int) bool
}

// DefaultRetryConfig suits a local Kubo node: three attempts within a second or so.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
		ShouldRetry:  func(err error, _ int) bool { return IsTransient(err) },
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = def.Multiplier
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		c.Jitter = def.Jitter
	}
	if c.ShouldRetry == nil {
		c.ShouldRetry = def.ShouldRetry
	}
	return c
}

// ExponentialBackoffPolicy grows the delay by Multiplier per attempt, capped at MaxDelay.
type ExponentialBackoffPolicy struct {
	cfg RetryConfig
}

func NewExponentialBackoffPolicy(cfg RetryConfig) *ExponentialBackoffPolicy {
	return &ExponentialBackoffPolicy{cfg: cfg.withDefaults()}
}

func (p *ExponentialBackoffPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	delay := math.Min(
		float64(p.cfg.InitialDelay)*math.Pow(p.cfg.Multiplier, float64(attempt)),
		float64(p.cfg.MaxDelay))
	if p.cfg.Jitter > 0 {
		delay += (rand.Float64()*2 - 1) * delay * p.cfg.Jitter
	}
	return time.Duration(math.Max(delay, 0))
}

func (p *ExponentialBackoffPolicy) ShouldRetry(err error, attempt int) bool {
	return attempt+1 < p.cfg.MaxAttempts && p.cfg.ShouldRetry(err, attempt)
}

func (p *ExponentialBackoffPolicy) MaxAttempts() int { return p.cfg.MaxAttempts }

// RetryExecutor runs an operation until it succeeds, the policy gives up or
// the context ends. It returns the last operation error, never a bare
// context error once an attempt has run.
type RetryExecutor struct {
	policy  RetryPolicy
	onRetry func(attempt int, delay time.Duration, err error)
}

func NewRetryExecutor(policy RetryPolicy) *RetryExecutor {
	return &RetryExecutor{policy: policy, onRetry: func(int, time.Duration, error) {}}
}

// SetOnRetryCallback is called before each wait, with the 1-based number of the retry.
func (r *RetryExecutor) SetOnRetryCallback(callback func(attempt int, delay time.Duration, err error)) {
	if callback != nil {
		r.onRetry = callback
	}
}

func (r *RetryExecutor) Execute(ctx context.Context, operation func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts(); attempt++ {
		if lastErr = operation(ctx); lastErr == nil {
			return nil
		}
		if !r.policy.ShouldRetry(lastErr, attempt) {
			return lastErr
		}

		delay := r.policy.NextDelay(attempt)
		r.onRetry(attempt+1, delay, lastErr)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// IsRetryableStatusCode reports the statuses a Kubo node or gateway returns
// while busy or restarting.
func IsRetryableStatusCode(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTransient reports whether err may clear on its own. Cancellation never does.
func IsTransient(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return IsRetryableStatusCode(sc.StatusCode())
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
