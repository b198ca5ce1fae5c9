package stateset

import (
	"sync"
	"sync/atomic"
	"time"
)

// CircuitState represents the state of the circuit breaker.
type CircuitState int32

const (
	// StateClosed lets requests pass while counting consecutive failures.
	StateClosed CircuitState = iota
	// StateOpen rejects requests until the recovery timeout elapses.
	StateOpen
	// StateHalfOpen lets exactly one trial request through.
	StateHalfOpen
)

// String returns the lowercase state name used in logs and metrics.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before allowing
	// a trial request.
	RecoveryTimeout time.Duration
}

// CircuitBreaker gates each individual attempt, prior to and independently
// of the retry policy. Counters are atomics; the compound
// read-state-then-transition steps hold a narrow mutex so concurrent callers
// cannot lose a transition.
type CircuitBreaker struct {
	config      CircuitBreakerConfig
	state       atomic.Int32
	failures    atomic.Int64
	lastFailure atomic.Int64 // unix nanos of the most recent failure
	trialStart  atomic.Int64 // unix nanos of the half-open trial admission

	mu sync.Mutex
}

// NewCircuitBreaker creates a circuit breaker, filling in defaults of
// 5 consecutive failures and a 60s recovery timeout.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	return &CircuitBreaker{config: config}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() CircuitState {
	return CircuitState(cb.state.Load())
}

// FailureCount returns the current consecutive-failure count.
func (cb *CircuitBreaker) FailureCount() int {
	return int(cb.failures.Load())
}

// RecoveryTimeout returns the configured open-state cooldown.
func (cb *CircuitBreaker) RecoveryTimeout() time.Duration {
	return cb.config.RecoveryTimeout
}

// CanExecute reports whether an attempt may proceed. Closed always allows.
// Open rejects until RecoveryTimeout has elapsed since the last failure, at
// which point the state moves to HalfOpen and only the transitioning caller
// is let through as the single trial; other callers seeing HalfOpen are
// rejected while the trial is fresh. A trial that never reports an outcome
// (the attempt was cancelled mid-flight) goes stale after another
// RecoveryTimeout and a new trial is admitted, so a lost trial can never
// pin the breaker half-open.
func (cb *CircuitBreaker) CanExecute() bool {
	now := time.Now().UnixNano()

	switch CircuitState(cb.state.Load()) {
	case StateClosed:
		return true
	case StateOpen:
		if now-cb.lastFailure.Load() < int64(cb.config.RecoveryTimeout) {
			return false
		}
		cb.mu.Lock()
		defer cb.mu.Unlock()
		if CircuitState(cb.state.Load()) != StateOpen {
			return false
		}
		cb.trialStart.Store(now)
		cb.state.Store(int32(StateHalfOpen))
		return true
	default: // HalfOpen
		if now-cb.trialStart.Load() < int64(cb.config.RecoveryTimeout) {
			return false
		}
		cb.mu.Lock()
		defer cb.mu.Unlock()
		if CircuitState(cb.state.Load()) != StateHalfOpen || now-cb.trialStart.Load() < int64(cb.config.RecoveryTimeout) {
			return false
		}
		cb.trialStart.Store(now)
		return true
	}
}

// RecordSuccess reports a successful attempt. A trial success closes the
// circuit and clears the failure count; a success while closed resets the
// consecutive-failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	switch CircuitState(cb.state.Load()) {
	case StateClosed:
		cb.failures.Store(0)
	case StateHalfOpen:
		cb.mu.Lock()
		defer cb.mu.Unlock()
		if CircuitState(cb.state.Load()) == StateHalfOpen {
			cb.state.Store(int32(StateClosed))
			cb.failures.Store(0)
		}
	}
}

// RecordFailure reports a failed attempt. Reaching the threshold while
// closed opens the circuit; a trial failure reopens it and resets the
// failure clock.
func (cb *CircuitBreaker) RecordFailure() {
	cb.lastFailure.Store(time.Now().UnixNano())

	switch CircuitState(cb.state.Load()) {
	case StateClosed:
		if cb.failures.Add(1) >= int64(cb.config.FailureThreshold) {
			cb.mu.Lock()
			if CircuitState(cb.state.Load()) == StateClosed {
				cb.state.Store(int32(StateOpen))
			}
			cb.mu.Unlock()
		}
	case StateHalfOpen:
		cb.mu.Lock()
		if CircuitState(cb.state.Load()) == StateHalfOpen {
			cb.failures.Add(1)
			cb.state.Store(int32(StateOpen))
		}
		cb.mu.Unlock()
	}
	// Failures while already open only refresh lastFailure.
}
