package reliability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the current state of the circuit breaker
type CircuitState int

const (
	// StateClosed - Normal operation, requests pass through
	StateClosed CircuitState = iota
	// StateOpen - Circuit is open, requests fail fast
	StateOpen
	// StateHalfOpen - One trial request is allowed through
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit
	FailureThreshold int
	// Timeout is how long the circuit stays open before a trial request is allowed
	Timeout time.Duration
	// ShouldTrip decides whether an error counts as a failure
	ShouldTrip func(error) bool
	// OnStateChange is called when the circuit state changes
	OnStateChange func(name string, from, to CircuitState)
	// Now is the clock, time.Now when nil
	Now func() time.Time
}

// DefaultCircuitBreakerConfig returns a default configuration
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		ShouldTrip:       IsTransient,
		OnStateChange:    func(string, CircuitState, CircuitState) {},
		Now:              time.Now,
	}
}

// CircuitBreaker fails fast while a remote endpoint keeps failing.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig

	mu           sync.Mutex
	state        CircuitState
	failures     int
	openedUntil  time.Time
	trialRunning bool
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.ShouldTrip == nil {
		config.ShouldTrip = def.ShouldTrip
	}
	if config.OnStateChange == nil {
		config.OnStateChange = def.OnStateChange
	}
	if config.Now == nil {
		config.Now = def.Now
	}
	return &CircuitBreaker{name: name, config: config}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	trial, err := cb.beforeRequest()
	if err != nil {
		return err
	}
	err = fn(ctx)
	cb.recordResult(trial, err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.config.Now()
	if cb.state == StateOpen && !now.Before(cb.openedUntil) {
		cb.setState(StateHalfOpen)
	}
	switch cb.state {
	case StateOpen:
		return false, &CircuitOpenError{CircuitName: cb.name, NextAttemptTime: cb.openedUntil}
	case StateHalfOpen:
		if cb.trialRunning {
			return false, &CircuitOpenError{CircuitName: cb.name, NextAttemptTime: cb.openedUntil}
		}
		cb.trialRunning = true
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) recordResult(trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialRunning = false
	}
	if err != nil && cb.config.ShouldTrip(err) {
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.openedUntil = cb.config.Now().Add(cb.config.Timeout)
			cb.setState(StateOpen)
		}
		return
	}
	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
	}
}

func (cb *CircuitBreaker) setState(state CircuitState) {
	if cb.state == state {
		return
	}
	prev := cb.state
	cb.state = state
	if state == StateClosed {
		cb.failures = 0
	}
	cb.config.OnStateChange(cb.name, prev, state)
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && !cb.config.Now().Before(cb.openedUntil) {
		return StateHalfOpen
	}
	return cb.state
}

// CircuitOpenError is returned when the circuit breaker is open
type CircuitOpenError struct {
	CircuitName     string
	NextAttemptTime time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker '%s' is open, next attempt allowed at %s",
		e.CircuitName, e.NextAttemptTime.Format(time.RFC3339))
}

// IsCircuitOpenError checks if an error is a circuit open error
func IsCircuitOpenError(err error) bool {
	var circuitErr *CircuitOpenError
	return errors.As(err, &circuitErr)
}
