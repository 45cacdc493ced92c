package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gratitudeboard/internal/notes/adapters/events"
	"gratitudeboard/internal/notes/domain/entities"
	"gratitudeboard/pkg/logger"
	"gratitudeboard/pkg/resilience"
)

var occurredAt = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestStreamPublisher_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("created event carries items", func(t *testing.T) {
		client, _ := setupRedis(t)
		pub := events.NewStreamPublisher(client, "", 0, time.Second, nil)

		err := pub.Publish(ctx, entities.NoteEvent{
			Kind:       entities.EventNoteCreated,
			NoteID:     "n1",
			Items:      []string{"sun", "tea"},
			OccurredAt: occurredAt,
		})
		require.NoError(t, err)

		msgs, err := client.XRange(ctx, events.DefaultStream, "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "note.created", msgs[0].Values[events.FieldEventType])
		assert.Equal(t, "n1", msgs[0].Values[events.FieldNoteID])
		assert.Equal(t, `["sun","tea"]`, msgs[0].Values[events.FieldItems])
		assert.Equal(t, "2026-10-15T09:30:00Z", msgs[0].Values[events.FieldOccurredAt])
	})

	t.Run("deleted event omits items", func(t *testing.T) {
		client, _ := setupRedis(t)
		pub := events.NewStreamPublisher(client, "custom:stream", 0, time.Second, nil)

		err := pub.Publish(ctx, entities.NoteEvent{Kind: entities.EventNoteDeleted, NoteID: "n1", OccurredAt: occurredAt})
		require.NoError(t, err)

		msgs, err := client.XRange(ctx, "custom:stream", "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "note.deleted", msgs[0].Values[events.FieldEventType])
		assert.NotContains(t, msgs[0].Values, events.FieldItems)
	})

	t.Run("breaker opens after failures", func(t *testing.T) {
		client, mr := setupRedis(t)
		breaker := resilience.NewCircuitBreaker("test", resilience.CircuitBreakerConfig{
			ErrorThreshold:   1,
			Timeout:          time.Hour,
			SuccessThreshold: 1,
		})
		pub := events.NewStreamPublisher(client, "", 0, 200*time.Millisecond, breaker)
		mr.Close()

		event := entities.NoteEvent{Kind: entities.EventNoteUpdated, NoteID: "n1", Items: []string{"x"}, OccurredAt: occurredAt}

		err := pub.Publish(ctx, event)
		require.Error(t, err)
		assert.NotErrorIs(t, err, resilience.ErrCircuitOpen)

		err = pub.Publish(ctx, event)
		require.ErrorIs(t, err, resilience.ErrCircuitOpen)
		assert.Equal(t, resilience.StateOpen, breaker.State())
	})
}

func TestLogPublisher_Publish(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := logger.NewContext(context.Background(), logger.NewFromZap(zap.New(core)))

	err := events.NewLogPublisher().Publish(ctx, entities.NoteEvent{
		Kind:       entities.EventNoteCreated,
		NoteID:     "n1",
		Items:      []string{"private"},
		OccurredAt: occurredAt,
	})
	require.NoError(t, err)

	entries := logs.FilterMessage(events.LogNoteEvent).All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "note.created", fields["eventType"])
	assert.Equal(t, int64(1), fields["itemCount"])
	assert.NotContains(t, fields, "items")
}
