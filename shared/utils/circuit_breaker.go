package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	// StateClosed allows calls through
	StateClosed CircuitState = "closed"
	// StateOpen rejects calls until the reset timeout passes
	StateOpen CircuitState = "open"
	// StateHalfOpen lets one trial call through
	StateHalfOpen CircuitState = "half-open"
)

var (
	// ErrCircuitOpen is returned when circuit breaker is open
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when a trial call is already running
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// BreakerStats is a point-in-time view of a breaker
type BreakerStats struct {
	Name        string       `json:"name"`
	State       CircuitState `json:"state"`
	Failures    int          `json:"failures"`
	LastFailure *time.Time   `json:"last_failure,omitempty"`
}

// CircuitBreaker guards calls to a flaky dependency such as Cognito or a webhook
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	mutex       sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
	trialActive bool
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
		state:        StateClosed,
	}
}

// Call executes the given function with circuit breaker protection
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mutex.Lock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailure) <= cb.resetTimeout {
			cb.mutex.Unlock()
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
	}

	if cb.state == StateHalfOpen {
		if cb.trialActive {
			cb.mutex.Unlock()
			return ErrTooManyRequests
		}
		cb.trialActive = true
	}

	cb.mutex.Unlock()

	err := fn()

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if err != nil {
		cb.onFailure()
		return err
	}

	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailure = cb.now()

	switch {
	case cb.state == StateHalfOpen:
		cb.trialActive = false
		cb.transition(StateOpen)
	case cb.failures >= cb.maxFailures:
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	if cb.state == StateHalfOpen {
		cb.trialActive = false
		cb.transition(StateClosed)
	}
	cb.failures = 0
}

// transition must be called with the mutex held
func (cb *CircuitBreaker) transition(to CircuitState) {
	if cb.state == to {
		return
	}
	logrus.WithFields(logrus.Fields{
		"breaker":  cb.name,
		"from":     cb.state,
		"to":       to,
		"failures": cb.failures,
	}).Warn("Circuit breaker state changed")
	cb.state = to
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Stats returns the breaker's state and failure count
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	stats := BreakerStats{Name: cb.name, State: cb.state, Failures: cb.failures}
	if !cb.lastFailure.IsZero() {
		last := cb.lastFailure
		stats.LastFailure = &last
	}
	return stats
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.transition(StateClosed)
	cb.failures = 0
	cb.trialActive = false
}
