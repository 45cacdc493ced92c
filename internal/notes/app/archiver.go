package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gratitudeboard/internal/notes/domain/entities"
	"gratitudeboard/internal/notes/ports/repositories"
	"gratitudeboard/pkg/logger"
)

// Константы для логирования архивации.
const (
	LogArchiveStarted  = "archive sweep started"
	LogArchiveFinished = "archive sweep finished"
	LogArchiveItem     = "failed to archive note, continuing"
	LogUnknownZone     = "unknown archive time zone, falling back to UTC"

	ErrArchiveList = "failed to list notes for archive"
)

// ArchiveResult - итог прохода архивации за день.
type ArchiveResult struct {
	Day      string `json:"date"`
	Archived int    `json:"archived"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// Archiver мягко удаляет все активные заметки за день.
type Archiver struct {
	noteRepo repositories.NoteRepository
	location *time.Location
	now      func() time.Time
}

// NewArchiver создает архиватор для часового пояса zone (имя IANA).
// Нераспознанное имя заменяется на UTC.
func NewArchiver(ctx context.Context, noteRepo repositories.NoteRepository, zone string, now func() time.Time) *Archiver {
	if now == nil {
		now = time.Now
	}
	return &Archiver{
		noteRepo: noteRepo,
		location: LoadLocation(ctx, zone),
		now:      now,
	}
}

// LoadLocation загружает часовой пояс, при ошибке возвращает UTC.
func LoadLocation(ctx context.Context, zone string) *time.Location {
	if zone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		logger.Log(ctx).Warn(ctx, LogUnknownZone, zap.String("zone", zone), zap.Error(err))
		return time.UTC
	}
	return loc
}

// Location возвращает часовой пояс архиватора.
func (a *Archiver) Location() *time.Location {
	return a.location
}

// Today возвращает текущий день в часовом поясе архиватора.
func (a *Archiver) Today() string {
	return entities.DayOf(a.now().In(a.location))
}

// RunArchive архивирует заметки за targetDay, по умолчанию за текущий день.
// Ошибка отдельной заметки не прерывает проход. Повторный запуск ничего не меняет.
func (a *Archiver) RunArchive(ctx context.Context, targetDay string) (ArchiveResult, error) {
	if targetDay == "" {
		targetDay = a.Today()
	} else if _, err := time.Parse(entities.DayLayout, targetDay); err != nil {
		return ArchiveResult{}, &invalidDayError{day: targetDay}
	}

	result := ArchiveResult{Day: targetDay}
	log := logger.Log(ctx).With(zap.String("method", "Archiver.RunArchive"), zap.String("day", targetDay))
	log.Info(ctx, LogArchiveStarted)

	notes, err := a.noteRepo.ListAllForDay(ctx, targetDay)
	if err != nil {
		log.Error(ctx, ErrArchiveList, zap.Error(err))
		return result, storageError(ErrArchiveList, err)
	}

	for _, note := range notes {
		if !note.IsActive() {
			result.Skipped++
			continue
		}

		done, err := a.noteRepo.Archive(ctx, note.ID, a.now().UTC())
		switch {
		case err != nil:
			result.Failed++
			log.Warn(ctx, LogArchiveItem, zap.String("noteID", note.ID), zap.Error(err))
		case done:
			result.Archived++
		default:
			result.Skipped++
		}
	}

	log.Info(ctx, LogArchiveFinished,
		zap.Int("archived", result.Archived),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

type invalidDayError struct {
	day string
}

func (e *invalidDayError) Error() string {
	return "archive date must be YYYY-MM-DD, got " + e.day
}

func (e *invalidDayError) Unwrap() error {
	return ErrInvalidInput
}
