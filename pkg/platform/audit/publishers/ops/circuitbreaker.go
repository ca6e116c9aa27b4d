package ops

import (
	"sync"
	"time"
)

// CircuitBreaker sheds persistence attempts while the audit store is
// unhealthy: after a run of consecutive failures it opens and Emit drops
// events without touching the store, then lets a probe through once the
// cooldown passes.
type CircuitBreaker struct {
	mu sync.RWMutex

	threshold int
	cooldown  time.Duration

	failures  int
	open      bool
	openUntil time.Time
}

// NewCircuitBreaker builds a breaker that opens after threshold
// consecutive failures and stays open for the cooldown. Non-positive
// arguments fall back to 5 failures and one minute.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a persistence attempt may proceed. An open
// breaker whose cooldown has elapsed closes and admits the caller as the
// probe.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.RLock()
	if !cb.open {
		cb.mu.RUnlock()
		return true
	}
	cooled := time.Now().After(cb.openUntil)
	cb.mu.RUnlock()

	if !cooled {
		return false
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	// Re-check under the write lock; another caller may have been the probe.
	if cb.open && time.Now().After(cb.openUntil) {
		cb.open = false
		cb.failures = 0
	}
	return !cb.open
}

// RecordSuccess closes the breaker and clears the failure run.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.open = false
}

// RecordFailure extends the failure run, opening the breaker at the
// threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	if cb.failures >= cb.threshold {
		cb.open = true
		cb.openUntil = time.Now().Add(cb.cooldown)
	}
}

// IsOpen reports the breaker state.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.open
}

// Reset closes the breaker regardless of state. Operational tooling only.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.open = false
}
