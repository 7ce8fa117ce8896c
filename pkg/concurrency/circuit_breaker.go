package concurrency

import (
	"sync"
	"sync/atomic"
	"time"
)

// CircuitBreakerState represents the state of the circuit breaker
type CircuitBreakerState int32

const (
	// StateClosed lets calls through.
	StateClosed CircuitBreakerState = iota
	// StateOpen rejects calls until the reset timeout has passed.
	StateOpen
	// StateHalfOpen lets calls through and closes after enough successes.
	StateHalfOpen
)

// halfOpenSuccesses is the number of consecutive successes that close a half-open breaker.
const halfOpenSuccesses = 5

// CircuitBreaker trips after failureThreshold consecutive failures against a
// backing store, so a dead store fails a run fast instead of timing out per artifact.
type CircuitBreaker struct {
	state                atomic.Int32
	consecutiveFailures  atomic.Int64
	consecutiveSuccesses atomic.Int64
	lastFailure          atomic.Int64 // unix nanos
	failureThreshold     int64
	resetTimeout         time.Duration
	mu                   sync.Mutex
}

// NewCircuitBreaker creates a closed breaker. Non-positive arguments select
// 10 failures and 30 seconds.
func NewCircuitBreaker(failureThreshold int64, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 10
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

// IsOpen reports whether calls are currently rejected. An open breaker whose
// reset timeout has passed moves to half-open and reports false.
func (cb *CircuitBreaker) IsOpen() bool {
	if cb.GetState() != StateOpen {
		return false
	}
	last := cb.lastFailure.Load()
	if last > 0 && time.Since(time.Unix(0, last)) > cb.resetTimeout {
		cb.transitionTo(StateHalfOpen)
		return false
	}
	return true
}

// RecordSuccess records a successful operation
func (cb *CircuitBreaker) RecordSuccess() {
	cb.consecutiveFailures.Store(0)
	if cb.GetState() != StateHalfOpen {
		return
	}
	if cb.consecutiveSuccesses.Add(1) >= halfOpenSuccesses {
		cb.transitionTo(StateClosed)
	}
}

// RecordFailure records a failed operation
func (cb *CircuitBreaker) RecordFailure() {
	state := cb.GetState()
	cb.consecutiveSuccesses.Store(0)
	cb.lastFailure.Store(time.Now().UnixNano())
	failures := cb.consecutiveFailures.Add(1)

	switch {
	case state == StateHalfOpen:
		cb.transitionTo(StateOpen)
	case state == StateClosed && failures >= cb.failureThreshold:
		cb.transitionTo(StateOpen)
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	return CircuitBreakerState(cb.state.Load())
}

// GetConsecutiveFailures returns the current number of consecutive failures
func (cb *CircuitBreaker) GetConsecutiveFailures() int64 {
	return cb.consecutiveFailures.Load()
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.transitionTo(StateClosed)
	cb.lastFailure.Store(0)
}

func (cb *CircuitBreaker) transitionTo(next CircuitBreakerState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if CircuitBreakerState(cb.state.Load()) == next {
		return
	}
	cb.state.Store(int32(next))

	switch next {
	case StateClosed:
		cb.consecutiveFailures.Store(0)
		cb.consecutiveSuccesses.Store(0)
	case StateHalfOpen:
		cb.consecutiveSuccesses.Store(0)
	}
}

// String returns the string representation of the circuit breaker state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}
