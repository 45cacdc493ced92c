// Package postgres provides PostgreSQL implementations of repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"gratitudeboard/internal/notes/domain/entities"
	"gratitudeboard/internal/notes/ports/repositories"
	"gratitudeboard/pkg/logger"
)

// Ограничения схемы, по которым различаются нарушения уникальности.
const (
	ConstraintPrimaryKey = "notes_pkey"
	ConstraintDaySlot    = "notes_active_day_slot"

	uniqueViolationCode = "23505"
)

// Значения по умолчанию.
const (
	DefaultPageSize         = 100
	DefaultOperationTimeout = 3 * time.Second
)

// SQL-запросы.
const (
	noteColumns = `id, name, email, items, day, status, owner_token, created_at, updated_at, deleted_at, archived_at, expires_at`

	queryInsertNote = `INSERT INTO notes (id, name, email, items, day, status, owner_token, created_at, updated_at, expires_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	queryFindActiveForDay = `SELECT ` + noteColumns + ` FROM notes WHERE email = $1 AND day = $2 AND status = 'active' LIMIT 1`

	querySlotHolder = `SELECT id FROM notes WHERE email = $1 AND day = $2 AND status = 'active'`

	queryReplaceItems = `UPDATE notes SET items = $1, updated_at = $2 WHERE id = $3 AND status = 'active'`

	queryGetByID = `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`

	querySoftDelete = `UPDATE notes SET status = 'deleted', deleted_at = $1 WHERE id = $2 AND status = 'active'`

	queryArchive = `UPDATE notes SET status = 'deleted', deleted_at = $1, archived_at = $1 WHERE id = $2 AND status = 'active'`

	queryExists = `SELECT EXISTS (SELECT 1 FROM notes WHERE id = $1)`

	// Постраничное чтение по ключу (created_at, id): удаления и вставки между
	// страницами не сдвигают уже прочитанную часть выборки.
	queryListAllForDay      = `SELECT ` + noteColumns + ` FROM notes WHERE day = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	queryListAllForDayAfter = `SELECT ` + noteColumns + ` FROM notes WHERE day = $1 AND (created_at, id) < ($3, $4) ORDER BY created_at DESC, id DESC LIMIT $2`

	queryListActiveForDay      = `SELECT ` + noteColumns + ` FROM notes WHERE day = $1 AND status = 'active' ORDER BY created_at DESC, id DESC LIMIT $2`
	queryListActiveForDayAfter = `SELECT ` + noteColumns + ` FROM notes WHERE day = $1 AND status = 'active' AND (created_at, id) < ($3, $4) ORDER BY created_at DESC, id DESC LIMIT $2`

	queryPurgeExpired = `DELETE FROM notes WHERE expires_at <= $1`
)

// Константы для логирования.
const (
	LogNoteCreated     = "note created"
	LogNoteExists      = "note id already exists"
	LogSlotTaken       = "day slot already taken"
	LogReplaceInactive = "replace skipped, note missing or deleted"
	LogNotesPurged     = "expired notes purged"

	ErrCreateNote    = "failed to create note"
	ErrFindNote      = "failed to find active note for day"
	ErrReplaceItems  = "failed to replace note items"
	ErrGetNote       = "failed to get note"
	ErrDeleteNote    = "failed to delete note"
	ErrListNotes     = "failed to list notes"
	ErrScanNote      = "failed to scan note"
	ErrPurgeNotes    = "failed to purge expired notes"
	ErrPingDatabase  = "failed to ping database"
	ErrResolveHolder = "failed to resolve day slot holder"
)

// DBTX - общее подмножество pgxpool.Pool и pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// NoteRepository реализует интерфейс repositories.NoteRepository.
type NoteRepository struct {
	db        DBTX
	pageSize  int
	opTimeout time.Duration
}

// NewNoteRepository создает новый репозиторий заметок.
func NewNoteRepository(db DBTX, pageSize int, opTimeout time.Duration) *NoteRepository {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if opTimeout <= 0 {
		opTimeout = DefaultOperationTimeout
	}
	return &NoteRepository{db: db, pageSize: pageSize, opTimeout: opTimeout}
}

// Create сохраняет новую заметку. Уникальность id и активного слота (email, day)
// обеспечивается ограничениями таблицы.
func (r *NoteRepository) Create(ctx context.Context, note *entities.Note) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.Create"), zap.String("noteID", note.ID))

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	_, err := r.db.Exec(opCtx, queryInsertNote,
		note.ID, note.Name, note.Email, note.Items, note.Day, string(note.Status),
		note.OwnerToken, note.CreatedAt, note.UpdatedAt, note.ExpiresAt,
	)
	if err == nil {
		log.Debug(ctx, LogNoteCreated)
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		switch pgErr.ConstraintName {
		case ConstraintPrimaryKey:
			log.Warn(ctx, LogNoteExists)
			return fmt.Errorf("%s: %w", ErrCreateNote, repositories.ErrAlreadyExists)
		case ConstraintDaySlot:
			log.Debug(ctx, LogSlotTaken)
			return r.slotHolder(ctx, note.Email, note.Day)
		}
	}

	log.Error(ctx, ErrCreateNote, zap.Error(err))
	return repositories.Unavailable(ErrCreateNote, err)
}

func (r *NoteRepository) slotHolder(ctx context.Context, email, day string) error {
	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	var holder string
	err := r.db.QueryRow(opCtx, querySlotHolder, email, day).Scan(&holder)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		logger.Log(ctx).Error(ctx, ErrResolveHolder, zap.Error(err))
		return repositories.Unavailable(ErrResolveHolder, err)
	}
	return &repositories.DaySlotError{NoteID: holder}
}

// FindActiveForDay возвращает активную заметку владельца за день или nil.
func (r *NoteRepository) FindActiveForDay(ctx context.Context, email, day string) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.FindActiveForDay"), zap.String("day", day))

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	note, err := scanNote(r.db.QueryRow(opCtx, queryFindActiveForDay, email, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		log.Error(ctx, ErrFindNote, zap.Error(err))
		return nil, repositories.Unavailable(ErrFindNote, err)
	}
	return note, nil
}

// ReplaceItems перезаписывает пункты активной заметки.
func (r *NoteRepository) ReplaceItems(ctx context.Context, noteID string, items []string, now time.Time) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.ReplaceItems"), zap.String("noteID", noteID))

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	result, err := r.db.Exec(opCtx, queryReplaceItems, items, now.UTC(), noteID)
	if err != nil {
		log.Error(ctx, ErrReplaceItems, zap.Error(err))
		return repositories.Unavailable(ErrReplaceItems, err)
	}
	if result.RowsAffected() == 0 {
		log.Debug(ctx, LogReplaceInactive)
		return fmt.Errorf("%s: %w", ErrReplaceItems, repositories.ErrNotFound)
	}
	return nil
}

// GetByID получает заметку по ID в любом статусе.
func (r *NoteRepository) GetByID(ctx context.Context, noteID string) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.GetByID"), zap.String("noteID", noteID))

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	note, err := scanNote(r.db.QueryRow(opCtx, queryGetByID, noteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Debug(ctx, "note not found")
			return nil, nil
		}
		log.Error(ctx, ErrGetNote, zap.Error(err))
		return nil, repositories.Unavailable(ErrGetNote, err)
	}
	return note, nil
}

// SoftDelete помечает заметку удаленной. Повторный вызов ничего не меняет.
func (r *NoteRepository) SoftDelete(ctx context.Context, noteID string, now time.Time) error {
	_, err := r.markDeleted(ctx, "NoteRepository.SoftDelete", querySoftDelete, noteID, now)
	return err
}

// Archive помечает заметку удаленной и проставляет archived_at.
func (r *NoteRepository) Archive(ctx context.Context, noteID string, now time.Time) (bool, error) {
	return r.markDeleted(ctx, "NoteRepository.Archive", queryArchive, noteID, now)
}

func (r *NoteRepository) markDeleted(ctx context.Context, method, query, noteID string, now time.Time) (bool, error) {
	log := logger.Log(ctx).With(zap.String("method", method), zap.String("noteID", noteID))

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	result, err := r.db.Exec(opCtx, query, now.UTC(), noteID)
	if err != nil {
		log.Error(ctx, ErrDeleteNote, zap.Error(err))
		return false, repositories.Unavailable(ErrDeleteNote, err)
	}
	if result.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRow(opCtx, queryExists, noteID).Scan(&exists); err != nil {
		log.Error(ctx, ErrDeleteNote, zap.Error(err))
		return false, repositories.Unavailable(ErrDeleteNote, err)
	}
	if !exists {
		return false, fmt.Errorf("%s: %w", ErrDeleteNote, repositories.ErrNotFound)
	}
	return false, nil
}

// ListActiveForDay возвращает активные заметки за день, новые первыми.
func (r *NoteRepository) ListActiveForDay(ctx context.Context, day string) ([]*entities.Note, error) {
	return r.listForDay(ctx, "NoteRepository.ListActiveForDay", queryListActiveForDay, queryListActiveForDayAfter, day)
}

// ListAllForDay возвращает все заметки за день, включая удаленные.
func (r *NoteRepository) ListAllForDay(ctx context.Context, day string) ([]*entities.Note, error) {
	return r.listForDay(ctx, "NoteRepository.ListAllForDay", queryListAllForDay, queryListAllForDayAfter, day)
}

func (r *NoteRepository) listForDay(ctx context.Context, method, firstQuery, nextQuery, day string) ([]*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", method), zap.String("day", day))

	notes := make([]*entities.Note, 0)
	var last *entities.Note
	for {
		page, err := r.listPage(ctx, firstQuery, nextQuery, day, last)
		if err != nil {
			log.Error(ctx, ErrListNotes, zap.Int("read", len(notes)), zap.Error(err))
			return nil, repositories.Unavailable(ErrListNotes, err)
		}
		notes = append(notes, page...)
		if len(page) < r.pageSize {
			break
		}
		last = page[len(page)-1]
	}
	return notes, nil
}

// listPage читает страницу после last; nil означает первую страницу.
func (r *NoteRepository) listPage(ctx context.Context, firstQuery, nextQuery, day string, last *entities.Note) ([]*entities.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	var (
		rows pgx.Rows
		err  error
	)
	if last == nil {
		rows, err = r.db.Query(ctx, firstQuery, day, r.pageSize)
	} else {
		rows, err = r.db.Query(ctx, nextQuery, day, r.pageSize, last.CreatedAt, last.ID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := make([]*entities.Note, 0, r.pageSize)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrScanNote, err)
		}
		page = append(page, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return page, nil
}

// PurgeExpired удаляет заметки с истекшим сроком хранения.
func (r *NoteRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.PurgeExpired"))

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	result, err := r.db.Exec(opCtx, queryPurgeExpired, now.UTC())
	if err != nil {
		log.Error(ctx, ErrPurgeNotes, zap.Error(err))
		return 0, repositories.Unavailable(ErrPurgeNotes, err)
	}

	log.Info(ctx, LogNotesPurged, zap.Int64("count", result.RowsAffected()))
	return result.RowsAffected(), nil
}

// Ping проверяет доступность базы данных.
func (r *NoteRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.db.Ping(ctx); err != nil {
		return repositories.Unavailable(ErrPingDatabase, err)
	}
	return nil
}

func scanNote(row pgx.Row) (*entities.Note, error) {
	var (
		note   entities.Note
		status string
	)
	err := row.Scan(
		&note.ID, &note.Name, &note.Email, &note.Items, &note.Day, &status, &note.OwnerToken,
		&note.CreatedAt, &note.UpdatedAt, &note.DeletedAt, &note.ArchivedAt, &note.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	note.Status = entities.Status(status)
	return &note, nil
}
