package shutdown_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gratitudeboard/pkg/shutdown"
)

func TestWaitExecutesHooksOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	hook := func(context.Context) error {
		calls.Add(1)
		return nil
	}
	failing := func(context.Context) error {
		calls.Add(1)
		return errors.New("close failed")
	}

	done := make(chan struct{})
	go func() {
		shutdown.Wait(ctx, time.Second, hook, failing)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after context cancellation")
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunRespectsTimeout(t *testing.T) {
	var completed atomic.Bool

	slowHook := func(ctx context.Context) error {
		select {
		case <-time.After(2 * time.Second):
			completed.Store(true)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	start := time.Now()
	shutdown.Run(context.Background(), 200*time.Millisecond, slowHook)

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, completed.Load(), "the slow hook should not have completed")
}

func TestRunExecutesHooksConcurrently(t *testing.T) {
	hook := func(context.Context) error {
		time.Sleep(300 * time.Millisecond)
		return nil
	}

	start := time.Now()
	shutdown.Run(context.Background(), time.Second, hook, hook, hook)

	assert.Less(t, time.Since(start), 800*time.Millisecond, "hooks appear to run sequentially")
}

func TestRunHooksSurviveCanceledParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawLiveContext atomic.Bool
	shutdown.Run(ctx, time.Second, func(hookCtx context.Context) error {
		sawLiveContext.Store(hookCtx.Err() == nil)
		return nil
	})

	assert.True(t, sawLiveContext.Load())
}
