package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without touching Redis while the breaker is open
var ErrCircuitOpen = errors.New("redis circuit breaker is open")

// CircuitState is closed (normal), open (rejecting) or half-open (probing)
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	default:
		return "half-open"
	}
}

// CircuitBreaker opens after a run of consecutive failures and lets a
// single trial call through once the cool-down has passed. Other callers
// are rejected until that call is recorded; a failed trial reopens it.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
	trial    bool
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow returns ErrCircuitOpen while calls should be skipped
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = CircuitHalfOpen
	case CircuitHalfOpen:
		if cb.trial {
			return ErrCircuitOpen
		}
	default:
		return nil
	}
	cb.trial = true
	return nil
}

// Record feeds the outcome of an allowed call back into the breaker
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.trial = false
	if err == nil {
		cb.state, cb.failures = CircuitClosed, 0
		return
	}

	cb.failures++
	if cb.state == CircuitHalfOpen || cb.failures >= cb.threshold {
		cb.state = CircuitOpen
		cb.openedAt = cb.now()
	}
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
