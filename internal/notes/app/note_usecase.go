// Package app implements application business logic for the notes service.
package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gratitudeboard/internal/notes/domain/entities"
	"gratitudeboard/internal/notes/domain/validation"
	"gratitudeboard/internal/notes/ports/repositories"
	"gratitudeboard/internal/notes/ports/services"
	"gratitudeboard/pkg/logger"
)

// Ошибки уровня бизнес-логики.
var (
	ErrInvalidInput       = validation.ErrInvalidInput
	ErrNotFound           = errors.New("note not found")
	ErrForbidden          = errors.New("owner token does not match")
	ErrConflict           = errors.New("could not settle note for day")
	ErrStorageUnavailable = repositories.ErrStorageUnavailable
)

// DefaultNoteTTL - срок хранения заметки по умолчанию.
const DefaultNoteTTL = 7 * 24 * time.Hour

// maxSubmitAttempts ограничивает число попыток согласовать слот (email, day).
const maxSubmitAttempts = 3

// Константы для логирования.
const (
	LogNoteCreated    = "note created"
	LogNoteReplaced   = "note items replaced"
	LogNoteDeleted    = "note deleted"
	LogSlotRace       = "day slot changed during submit, retrying"
	LogIDCollision    = "note id collision, regenerating"
	LogForbidden      = "delete rejected, owner token mismatch"
	LogPublishFailure = "failed to publish note event"

	ErrSubmitNote = "failed to submit note"
	ErrGetNote    = "failed to get note"
	ErrDeleteNote = "failed to delete note"
	ErrListNotes  = "failed to list today's notes"
)

// NoteUseCase представляет собой бизнес-логику работы с заметками.
type NoteUseCase struct {
	noteRepo  repositories.NoteRepository
	publisher services.EventPublisher
	ttl       time.Duration
	now       func() time.Time
	newID     func() string
}

// Option настраивает NoteUseCase.
type Option func(*NoteUseCase)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(uc *NoteUseCase) { uc.now = now }
}

// WithIDGenerator подменяет генератор идентификаторов и токенов владельца.
func WithIDGenerator(gen func() string) Option {
	return func(uc *NoteUseCase) { uc.newID = gen }
}

// WithNoteTTL задает срок хранения новых заметок.
func WithNoteTTL(ttl time.Duration) Option {
	return func(uc *NoteUseCase) {
		if ttl > 0 {
			uc.ttl = ttl
		}
	}
}

// NewNoteUseCase создает новый экземпляр NoteUseCase.
func NewNoteUseCase(noteRepo repositories.NoteRepository, publisher services.EventPublisher, opts ...Option) *NoteUseCase {
	uc := &NoteUseCase{
		noteRepo:  noteRepo,
		publisher: publisher,
		ttl:       DefaultNoteTTL,
		now:       time.Now,
		newID:     NewOpaqueID,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// NewOpaqueID возвращает случайный 128-битный идентификатор в hex.
func NewOpaqueID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Submit создает заметку на текущий день UTC или заменяет пункты уже существующей.
// Второе значение равно true, если заметка создана.
func (uc *NoteUseCase) Submit(ctx context.Context, sub validation.Submission) (*entities.Note, bool, error) {
	canonical, err := validation.Validate(sub)
	if err != nil {
		return nil, false, err
	}

	now := uc.now().UTC()
	day := entities.DayOf(now)
	log := logger.Log(ctx).With(zap.String("method", "NoteUseCase.Submit"), zap.String("day", day))

	for attempt := 1; attempt <= maxSubmitAttempts; attempt++ {
		existing, err := uc.noteRepo.FindActiveForDay(ctx, canonical.Email, day)
		if err != nil {
			log.Error(ctx, ErrSubmitNote, zap.Error(err))
			return nil, false, storageError(ErrSubmitNote, err)
		}

		if existing != nil {
			err = uc.noteRepo.ReplaceItems(ctx, existing.ID, canonical.Items, now)
			if err == nil {
				existing.Items = canonical.Items
				existing.UpdatedAt = now
				log.Info(ctx, LogNoteReplaced, zap.String("noteID", existing.ID))
				uc.publish(ctx, entities.NewNoteEvent(entities.EventNoteUpdated, existing, now))
				return existing, false, nil
			}
			if !errors.Is(err, repositories.ErrNotFound) {
				log.Error(ctx, ErrSubmitNote, zap.String("noteID", existing.ID), zap.Error(err))
				return nil, false, storageError(ErrSubmitNote, err)
			}
			log.Debug(ctx, LogSlotRace, zap.String("noteID", existing.ID), zap.Int("attempt", attempt))
		}

		note := entities.NewNote(uc.newID(), uc.newID(), canonical.Name, canonical.Email, canonical.Items, now, uc.ttl)
		err = uc.noteRepo.Create(ctx, note)
		switch {
		case err == nil:
			log.Info(ctx, LogNoteCreated, zap.String("noteID", note.ID))
			uc.publish(ctx, entities.NewNoteEvent(entities.EventNoteCreated, note, now))
			return note, true, nil
		case errors.Is(err, repositories.ErrDaySlotTaken):
			log.Debug(ctx, LogSlotRace, zap.Int("attempt", attempt))
		case errors.Is(err, repositories.ErrAlreadyExists):
			log.Warn(ctx, LogIDCollision, zap.String("noteID", note.ID))
		default:
			log.Error(ctx, ErrSubmitNote, zap.String("noteID", note.ID), zap.Error(err))
			return nil, false, storageError(ErrSubmitNote, err)
		}
	}

	log.Error(ctx, ErrSubmitNote, zap.Error(ErrConflict))
	return nil, false, fmt.Errorf("%s: %w", ErrSubmitNote, ErrConflict)
}

// Get возвращает активную заметку по ID. Удаленная заметка неотличима от отсутствующей.
func (uc *NoteUseCase) Get(ctx context.Context, noteID string) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteUseCase.Get"), zap.String("noteID", noteID))

	note, err := uc.noteRepo.GetByID(ctx, noteID)
	if err != nil {
		log.Error(ctx, ErrGetNote, zap.Error(err))
		return nil, storageError(ErrGetNote, err)
	}
	if note == nil || !note.IsActive() {
		return nil, ErrNotFound
	}
	return note, nil
}

// Delete мягко удаляет заметку, если token совпадает с токеном владельца.
func (uc *NoteUseCase) Delete(ctx context.Context, noteID, token string) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteUseCase.Delete"), zap.String("noteID", noteID))

	note, err := uc.Get(ctx, noteID)
	if err != nil {
		return err
	}

	if !tokensEqual(note.OwnerToken, token) {
		log.Warn(ctx, LogForbidden)
		return ErrForbidden
	}

	now := uc.now().UTC()
	if err := uc.noteRepo.SoftDelete(ctx, noteID, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		log.Error(ctx, ErrDeleteNote, zap.Error(err))
		return storageError(ErrDeleteNote, err)
	}

	log.Info(ctx, LogNoteDeleted)
	uc.publish(ctx, entities.NewNoteEvent(entities.EventNoteDeleted, note, now))
	return nil
}

// ListToday возвращает активные заметки текущего дня UTC без секретных полей.
func (uc *NoteUseCase) ListToday(ctx context.Context) ([]*entities.PublicNote, error) {
	day := entities.DayOf(uc.now().UTC())
	log := logger.Log(ctx).With(zap.String("method", "NoteUseCase.ListToday"), zap.String("day", day))

	notes, err := uc.noteRepo.ListActiveForDay(ctx, day)
	if err != nil {
		log.Error(ctx, ErrListNotes, zap.Error(err))
		return nil, storageError(ErrListNotes, err)
	}

	public := make([]*entities.PublicNote, 0, len(notes))
	for _, note := range notes {
		if note.IsActive() {
			public = append(public, note.Public())
		}
	}
	return public, nil
}

func (uc *NoteUseCase) publish(ctx context.Context, event entities.NoteEvent) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, event); err != nil {
		logger.Log(ctx).Warn(ctx, LogPublishFailure,
			zap.String("eventType", event.Kind.String()),
			zap.String("noteID", event.NoteID),
			zap.Error(err),
		)
	}
}

func tokensEqual(stored, given string) bool {
	if stored == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// storageError приводит ошибку хранилища к ErrStorageUnavailable.
func storageError(op string, err error) error {
	if errors.Is(err, repositories.ErrStorageUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, repositories.ErrStorageUnavailable, err)
}
