package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gratitudeboard/pkg/resilience"
)

var errBackend = errors.New("backend down")

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newBreaker(clock *fakeClock) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreakerWithClock("test", resilience.CircuitBreakerConfig{
		ErrorThreshold:   2,
		Timeout:          time.Second,
		SuccessThreshold: 1,
	}, clock.Now)
}

func TestCircuitBreaker(t *testing.T) {
	ctx := context.Background()

	t.Run("trips after threshold and rejects calls", func(t *testing.T) {
		clock := &fakeClock{t: time.Unix(0, 0)}
		cb := newBreaker(clock)

		for range 2 {
			err := cb.Execute(ctx, func() error { return errBackend })
			require.ErrorIs(t, err, errBackend)
		}
		assert.Equal(t, resilience.StateOpen, cb.State())

		called := false
		err := cb.Execute(ctx, func() error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
		assert.False(t, called)
	})

	t.Run("half-open probe closes on success", func(t *testing.T) {
		clock := &fakeClock{t: time.Unix(0, 0)}
		cb := newBreaker(clock)

		for range 2 {
			_ = cb.Execute(ctx, func() error { return errBackend })
		}
		clock.Advance(2 * time.Second)

		require.NoError(t, cb.Execute(ctx, func() error { return nil }))
		assert.Equal(t, resilience.StateClosed, cb.State())
	})

	t.Run("half-open probe failure reopens", func(t *testing.T) {
		clock := &fakeClock{t: time.Unix(0, 0)}
		cb := newBreaker(clock)

		for range 2 {
			_ = cb.Execute(ctx, func() error { return errBackend })
		}
		clock.Advance(2 * time.Second)

		require.ErrorIs(t, cb.Execute(ctx, func() error { return errBackend }), errBackend)
		assert.Equal(t, resilience.StateOpen, cb.State())
	})

	t.Run("success resets failure streak", func(t *testing.T) {
		clock := &fakeClock{t: time.Unix(0, 0)}
		cb := newBreaker(clock)

		_ = cb.Execute(ctx, func() error { return errBackend })
		_ = cb.Execute(ctx, func() error { return nil })
		_ = cb.Execute(ctx, func() error { return errBackend })

		assert.Equal(t, resilience.StateClosed, cb.State())
	})
}
