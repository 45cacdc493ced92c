// Package repositories defines repository interfaces for the notes service.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gratitudeboard/internal/notes/domain/entities"
)

// Ошибки хранилища заметок.
var (
	ErrNotFound           = errors.New("note not found")
	ErrAlreadyExists      = errors.New("note already exists")
	ErrDaySlotTaken       = errors.New("active note for this day already exists")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// DaySlotError сообщает, какая заметка уже занимает слот (email, day).
type DaySlotError struct {
	NoteID string
}

func (e *DaySlotError) Error() string {
	return fmt.Sprintf("%s: held by %s", ErrDaySlotTaken, e.NoteID)
}

// Unwrap позволяет сравнивать через errors.Is(err, ErrDaySlotTaken).
func (e *DaySlotError) Unwrap() error {
	return ErrDaySlotTaken
}

// NoteRepository определяет интерфейс для работы с хранилищем заметок.
//
// Хранилище гарантирует не более одной активной заметки на пару (email, day):
// Create атомарно занимает слот, SoftDelete и Archive его освобождают.
// Методы чтения возвращают nil, nil если запись не найдена.
type NoteRepository interface {
	Create(ctx context.Context, note *entities.Note) error
	FindActiveForDay(ctx context.Context, email, day string) (*entities.Note, error)
	ReplaceItems(ctx context.Context, noteID string, items []string, now time.Time) error
	GetByID(ctx context.Context, noteID string) (*entities.Note, error)
	SoftDelete(ctx context.Context, noteID string, now time.Time) error
	Archive(ctx context.Context, noteID string, now time.Time) (bool, error)
	ListActiveForDay(ctx context.Context, day string) ([]*entities.Note, error)
	ListAllForDay(ctx context.Context, day string) ([]*entities.Note, error)
	Ping(ctx context.Context) error
}

// Unavailable оборачивает транспортную ошибку хранилища в ErrStorageUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
