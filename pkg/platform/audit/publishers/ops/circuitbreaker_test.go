package ops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	assert.True(t, cb.Allow())
	cb.RecordFailure()
	cb.RecordFailure()
	assert.True(t, cb.Allow(), "below threshold, circuit stays closed")

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.False(t, cb.IsOpen(), "success should reset the consecutive failure count")
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	cb.RecordFailure()
	assert.False(t, cb.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Allow(), "cooldown elapsed, one request should pass")
	assert.False(t, cb.IsOpen())
}

func TestSampler_RateZeroDropsEverything(t *testing.T) {
	s := NewSampler(0)
	for i := 0; i < 100; i++ {
		assert.False(t, s.ShouldSample("anything"))
	}
}

func TestSampler_RateOneKeepsEverything(t *testing.T) {
	s := NewSampler(1)
	for i := 0; i < 100; i++ {
		assert.True(t, s.ShouldSample("anything"))
	}
}

func TestSampler_PerActionOverride(t *testing.T) {
	s := NewSampler(1)
	s.SetRate("noisy_action", 0)

	assert.False(t, s.ShouldSample("noisy_action"))
	assert.True(t, s.ShouldSample("other_action"))
}
