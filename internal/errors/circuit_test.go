package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a circuit breaker with max 3 failures
	cb := NewCircuitBreaker("lookup", WithMaxFailures(3), WithResetTimeout(time.Second))

	// When: recording 3 failures
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}

	// Then: circuit is open and calls are rejected without running
	assert.Equal(t, StateOpen, cb.State())
	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker("lookup", WithMaxFailures(2), WithResetTimeout(30*time.Millisecond))
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	err := cb.Execute(func() error { return nil })

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("lookup", WithMaxFailures(2), WithResetTimeout(30*time.Millisecond))
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}
	time.Sleep(50 * time.Millisecond)

	err := cb.Execute(func() error { return errors.New("still down") })

	assert.EqualError(t, err, "still down")
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_DisabledWithZeroFailures(t *testing.T) {
	cb := NewCircuitBreaker("lookup", WithMaxFailures(0))
	for i := 0; i < 10; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}
	assert.NoError(t, cb.Execute(func() error { return nil }))
}

func TestCircuitCall_ReturnsResult(t *testing.T) {
	cb := NewCircuitBreaker("lookup")
	got, err := CircuitCall(cb, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, "lookup", cb.Name())
	assert.Equal(t, "closed", cb.State().String())
}
