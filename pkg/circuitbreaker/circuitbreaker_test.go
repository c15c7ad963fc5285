package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransport = errors.New("connection refused")
	errRejected  = errors.New("validation failed")
)

func fail(err error) func() (int, error) {
	return func() (int, error) { return 0, err }
}

func ok() (int, error) { return 1, nil }

func TestTripsAfterConsecutiveFailures(t *testing.T) {
	cb := New[int](Config{Name: "orders", ConsecutiveFailures: 3, OpenTimeout: time.Minute}, nil, nil)

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(fail(errTransport))
		assert.ErrorIs(t, err, errTransport)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(ok)
	assert.True(t, IsOpen(err))
}

func TestSuccessfulErrorsDoNotTrip(t *testing.T) {
	isSuccessful := func(err error) bool { return err == nil || errors.Is(err, errRejected) }
	cb := New[int](Config{Name: "orders", ConsecutiveFailures: 2, OpenTimeout: time.Minute}, isSuccessful, nil)

	for i := 0; i < 10; i++ {
		_, err := cb.Execute(fail(errRejected))
		assert.ErrorIs(t, err, errRejected)
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestHalfOpenRecovers(t *testing.T) {
	cb := New[int](Config{Name: "payments", ConsecutiveFailures: 1, OpenTimeout: 20 * time.Millisecond, HalfOpenRequests: 1}, nil, nil)

	_, err := cb.Execute(fail(errTransport))
	require.Error(t, err)
	require.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(40 * time.Millisecond)

	v, err := cb.Execute(ok)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestIsOpen(t *testing.T) {
	assert.True(t, IsOpen(gobreaker.ErrOpenState))
	assert.True(t, IsOpen(gobreaker.ErrTooManyRequests))
	assert.False(t, IsOpen(errTransport))
	assert.False(t, IsOpen(nil))
}
