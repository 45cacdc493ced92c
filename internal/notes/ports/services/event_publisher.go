// Package services defines service interfaces for the notes service.
package services

import (
	"context"

	"gratitudeboard/internal/notes/domain/entities"
)

// EventPublisher публикует события жизненного цикла заметок.
// Ошибка публикации не должна откатывать уже выполненную запись.
type EventPublisher interface {
	Publish(ctx context.Context, event entities.NoteEvent) error
}
