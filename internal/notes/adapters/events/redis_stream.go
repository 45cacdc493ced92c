// Package events содержит реализации публикации событий жизненного цикла заметок.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gratitudeboard/internal/notes/domain/entities"
	"gratitudeboard/pkg/logger"
	"gratitudeboard/pkg/resilience"
)

// Поля записи в потоке.
const (
	FieldEventType  = "eventType"
	FieldNoteID     = "noteId"
	FieldItems      = "items"
	FieldOccurredAt = "occurredAt"
)

// DefaultStream - поток событий по умолчанию.
const DefaultStream = "notes:events"

// Константы для логирования.
const (
	LogEventPublished = "note event published"

	ErrEncodeEvent  = "failed to encode note event"
	ErrPublishEvent = "failed to publish note event"
)

// StreamPublisher публикует события в Redis Stream.
type StreamPublisher struct {
	client  redis.UniversalClient
	stream  string
	maxLen  int64
	timeout time.Duration
	breaker *resilience.CircuitBreaker
}

// NewStreamPublisher создает публикатор событий в поток stream.
// maxLen ограничивает длину потока приблизительно, 0 - без ограничения.
func NewStreamPublisher(client redis.UniversalClient, stream string, maxLen int64, timeout time.Duration, breaker *resilience.CircuitBreaker) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("note-events", resilience.DefaultCircuitBreakerConfig())
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen, timeout: timeout, breaker: breaker}
}

// Publish добавляет событие в поток. При открытом Circuit Breaker возвращает resilience.ErrCircuitOpen.
func (p *StreamPublisher) Publish(ctx context.Context, event entities.NoteEvent) error {
	log := logger.Log(ctx).With(
		zap.String("method", "StreamPublisher.Publish"),
		zap.String("eventType", event.Kind.String()),
		zap.String("noteID", event.NoteID),
	)

	values := map[string]any{
		FieldEventType:  event.Kind.String(),
		FieldNoteID:     event.NoteID,
		FieldOccurredAt: event.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if event.Kind.CarriesItems() {
		items, err := json.Marshal(event.Items)
		if err != nil {
			return fmt.Errorf("%s: %w", ErrEncodeEvent, err)
		}
		values[FieldItems] = string(items)
	}

	err := p.breaker.Execute(ctx, func() error {
		opCtx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			opCtx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		return p.client.XAdd(opCtx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLen,
			Approx: p.maxLen > 0,
			Values: values,
		}).Err()
	})
	if err != nil {
		log.Warn(ctx, ErrPublishEvent, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrPublishEvent, err)
	}

	log.Debug(ctx, LogEventPublished)
	return nil
}
