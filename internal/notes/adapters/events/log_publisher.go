package events

import (
	"context"

	"go.uber.org/zap"

	"gratitudeboard/internal/notes/domain/entities"
	"gratitudeboard/pkg/logger"
)

// LogNoteEvent - сообщение, которым LogPublisher фиксирует событие.
const LogNoteEvent = "note event"

// LogPublisher пишет события в журнал. Используется, когда поток событий отключен.
type LogPublisher struct{}

// NewLogPublisher создает публикатор событий в журнал.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Publish записывает событие без содержимого заметки.
func (LogPublisher) Publish(ctx context.Context, event entities.NoteEvent) error {
	logger.Log(ctx).Info(ctx, LogNoteEvent,
		zap.String("eventType", event.Kind.String()),
		zap.String("noteID", event.NoteID),
		zap.Int("itemCount", len(event.Items)),
		zap.Time("occurredAt", event.OccurredAt),
	)
	return nil
}
