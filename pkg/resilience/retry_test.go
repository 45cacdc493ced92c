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

var errTransient = errors.New("connection refused")

type recordingTimer struct {
	waits []time.Duration
}

func (r *recordingTimer) after(d time.Duration) <-chan time.Time {
	r.waits = append(r.waits, d)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func TestRetryExecute(t *testing.T) {
	ctx := context.Background()
	cfg := resilience.RetryConfig{
		MaxAttempts:    4,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     250 * time.Millisecond,
		BackoffFactor:  2,
	}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		timer := &recordingTimer{}
		calls := 0
		err := resilience.NewRetryWithTimer("test", cfg, timer.after).Execute(ctx, func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, timer.waits)
	})

	t.Run("gives up after max attempts with capped backoff", func(t *testing.T) {
		timer := &recordingTimer{}
		calls := 0
		err := resilience.NewRetryWithTimer("test", cfg, timer.after).Execute(ctx, func(context.Context) error {
			calls++
			return errTransient
		})

		require.ErrorIs(t, err, errTransient)
		assert.Equal(t, 4, calls)
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond}, timer.waits)
	})

	t.Run("non retryable error stops immediately", func(t *testing.T) {
		permanent := errors.New("bad password")
		custom := cfg
		custom.ShouldRetry = func(err error) bool { return !errors.Is(err, permanent) }

		calls := 0
		err := resilience.NewRetryWithTimer("test", custom, (&recordingTimer{}).after).Execute(ctx, func(context.Context) error {
			calls++
			return permanent
		})

		require.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancel while waiting", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		never := func(time.Duration) <-chan time.Time { return nil }

		err := resilience.NewRetryWithTimer("test", cfg, never).Execute(cancelCtx, func(context.Context) error {
			cancel()
			return errTransient
		})

		require.ErrorIs(t, err, resilience.ErrRetryCanceled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
