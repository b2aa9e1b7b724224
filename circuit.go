package pitchmix

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	StateClosed   CircuitState = iota // Normal operation
	StateOpen                         // Engine failing to start, reject jobs
	StateHalfOpen                     // Testing if the engine recovered
)

func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker stops invoking an engine that keeps failing to start.
// Only errors accepted by the trip predicate count as failures; by default
// that is ErrEngineUnavailable, so a corrupt input never opens the circuit.
type CircuitBreaker struct {
	maxFailures      int
	resetTimeout     time.Duration
	halfOpenRequests int
	trip             func(error) bool

	mu            sync.RWMutex
	state         CircuitState
	failures      int
	lastFailTime  time.Time
	successCount  int
	requestsInFly int
}

// NewCircuitBreaker creates a circuit breaker with default settings
func NewCircuitBreaker() *CircuitBreaker {
	return NewCircuitBreakerWithConfig(5, 10*time.Second, 3)
}

// NewCircuitBreakerWithConfig creates a circuit breaker with custom settings
func NewCircuitBreakerWithConfig(maxFailures int, resetTimeout time.Duration, halfOpenRequests int) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:      maxFailures,
		resetTimeout:     resetTimeout,
		halfOpenRequests: halfOpenRequests,
		trip:             isEngineUnavailable,
		state:            StateClosed,
	}
}

// WithTrip replaces the predicate deciding which errors count as failures.
func (cb *CircuitBreaker) WithTrip(trip func(error) bool) *CircuitBreaker {
	cb.trip = trip
	return cb
}

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Call executes a function with circuit breaker protection
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn()

	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && timeNow().Sub(cb.lastFailTime) > cb.resetTimeout {
		cb.state = StateHalfOpen
		cb.successCount = 0
		cb.requestsInFly = 0
	}

	switch cb.state {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.requestsInFly >= cb.halfOpenRequests {
			return ErrTooManyRequests
		}
		cb.requestsInFly++
	}

	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.requestsInFly--
	}

	if err != nil && cb.trip(err) {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failures = 0

	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.halfOpenRequests {
			cb.state = StateClosed
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailTime = timeNow()

	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// State returns the current circuit breaker state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successCount = 0
}

// RetryConfig defines retries of engine starts that failed transiently
// (fork/exec resource exhaustion). Engine execution failures are never
// retried.
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig returns sensible defaults for retries
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialBackoff:  100 * time.Millisecond,
		MaxBackoff:      5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// Do runs fn until it succeeds, returns an error that is not
// ErrEngineUnavailable, attempts run out, or ctx is done.
func (rc RetryConfig) Do(ctx context.Context, fn func() error) error {
	attempts := rc.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := rc.InitialBackoff

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !isEngineUnavailable(err) || errors.Is(err, ErrCircuitOpen) {
			return err
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * rc.BackoffMultiple)
		if rc.MaxBackoff > 0 && backoff > rc.MaxBackoff {
			backoff = rc.MaxBackoff
		}
	}
	return err
}

func isEngineUnavailable(err error) bool {
	return errors.Is(err, ErrEngineUnavailable)
}

// timeNow is a variable for testing
var timeNow = time.Now
