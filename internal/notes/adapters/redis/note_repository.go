// Package redis содержит реализацию хранилища заметок поверх Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gratitudeboard/internal/notes/domain/entities"
	"gratitudeboard/internal/notes/ports/repositories"
	"gratitudeboard/pkg/logger"
)

// Ключи Redis.
const (
	noteKeyPrefix = "note:"
	dayKeyPrefix  = "notes:day:"
	slotKeyPrefix = "notes:slot:"
)

// Поля хэша заметки.
const (
	fieldID         = "id"
	fieldName       = "name"
	fieldEmail      = "email"
	fieldItems      = "items"
	fieldDay        = "day"
	fieldStatus     = "status"
	fieldOwnerToken = "owner_token"
	fieldCreatedAt  = "created_at"
	fieldUpdatedAt  = "updated_at"
	fieldDeletedAt  = "deleted_at"
	fieldArchivedAt = "archived_at"
	fieldExpiresAt  = "expires_at"
)

// Значения по умолчанию.
const (
	DefaultPageSize         = 100
	DefaultOperationTimeout = 3 * time.Second
)

// Константы для логирования.
const (
	LogCreatingNote    = "creating note"
	LogNoteCreated     = "note created"
	LogNoteExists      = "note id already exists"
	LogSlotTaken       = "day slot already taken"
	LogItemsReplaced   = "note items replaced"
	LogReplaceInactive = "replace skipped, note missing or deleted"
	LogNoteDeleted     = "note soft-deleted"
	LogNoteArchived    = "note archived"
	LogDamagedRecord   = "skipping damaged note record"

	ErrCreateNote   = "failed to create note"
	ErrFindNote     = "failed to find active note for day"
	ErrReplaceItems = "failed to replace note items"
	ErrGetNote      = "failed to get note"
	ErrDeleteNote   = "failed to delete note"
	ErrListNotes    = "failed to list notes"
	ErrDecodeNote   = "failed to decode note"
	ErrPing         = "failed to ping redis"
)

// Результаты скрипта создания.
const (
	createOK     = "ok"
	createExists = "exists"
	createSlot   = "slot:"
)

// createScript атомарно создает заметку и занимает слот (email, day).
// KEYS: note, slot, day index. ARGV: id, score, expireat, note key prefix, затем пары поле/значение.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 'exists'
end
local holder = redis.call('GET', KEYS[2])
if holder then
	if redis.call('HGET', ARGV[4] .. holder, 'status') == 'active' then
		return 'slot:' .. holder
	end
end
redis.call('HSET', KEYS[1], unpack(ARGV, 5))
redis.call('EXPIREAT', KEYS[1], ARGV[3])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('EXPIREAT', KEYS[2], ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
redis.call('EXPIREAT', KEYS[3], ARGV[3])
return 'ok'
`)

// replaceScript перезаписывает пункты только у активной заметки.
var replaceScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') ~= 'active' then
	return 0
end
redis.call('HSET', KEYS[1], 'items', ARGV[1], 'updated_at', ARGV[2])
return 1
`)

// deleteScript переводит заметку в deleted и освобождает слот.
// Возвращает -1 если заметки нет, 0 если она уже удалена, 1 если переход выполнен.
var deleteScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('HGET', KEYS[1], 'status') ~= 'active' then
	return 0
end
redis.call('HSET', KEYS[1], 'status', 'deleted', 'deleted_at', ARGV[1])
if ARGV[2] == '1' then
	redis.call('HSET', KEYS[1], 'archived_at', ARGV[1])
end
local fields = redis.call('HMGET', KEYS[1], 'id', 'day', 'email')
local slot = ARGV[3] .. fields[2] .. ':' .. fields[3]
if redis.call('GET', slot) == fields[1] then
	redis.call('DEL', slot)
end
return 1
`)

// NoteRepository реализует repositories.NoteRepository поверх Redis.
type NoteRepository struct {
	client    redis.UniversalClient
	pageSize  int64
	opTimeout time.Duration
}

// NewNoteRepository создает хранилище заметок в Redis.
func NewNoteRepository(client redis.UniversalClient, pageSize int, opTimeout time.Duration) *NoteRepository {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if opTimeout <= 0 {
		opTimeout = DefaultOperationTimeout
	}
	return &NoteRepository{client: client, pageSize: int64(pageSize), opTimeout: opTimeout}
}

func noteKey(id string) string { return noteKeyPrefix + id }

func dayKey(day string) string { return dayKeyPrefix + day }

func slotKey(day, email string) string { return slotKeyPrefix + day + ":" + email }

// Create сохраняет новую заметку, если id и слот (email, day) свободны.
func (r *NoteRepository) Create(ctx context.Context, note *entities.Note) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.Create"))
	log.Debug(ctx, LogCreatingNote, zap.String("noteID", note.ID), zap.String("day", note.Day))

	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	itemsJSON, err := json.Marshal(note.Items)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrCreateNote, err)
	}

	args := []any{
		note.ID,
		note.CreatedAt.UnixMilli(),
		note.ExpiresAt.Unix(),
		noteKeyPrefix,
		fieldID, note.ID,
		fieldName, note.Name,
		fieldEmail, note.Email,
		fieldItems, string(itemsJSON),
		fieldDay, note.Day,
		fieldStatus, string(note.Status),
		fieldOwnerToken, note.OwnerToken,
		fieldCreatedAt, formatTime(note.CreatedAt),
		fieldUpdatedAt, formatTime(note.UpdatedAt),
		fieldExpiresAt, formatTime(note.ExpiresAt),
	}

	keys := []string{noteKey(note.ID), slotKey(note.Day, note.Email), dayKey(note.Day)}
	res, err := createScript.Run(ctx, r.client, keys, args...).Text()
	if err != nil {
		log.Error(ctx, ErrCreateNote, zap.Error(err))
		return repositories.Unavailable(ErrCreateNote, err)
	}

	switch {
	case res == createOK:
		log.Debug(ctx, LogNoteCreated, zap.String("noteID", note.ID))
		return nil
	case res == createExists:
		log.Warn(ctx, LogNoteExists, zap.String("noteID", note.ID))
		return fmt.Errorf("%s: %w", ErrCreateNote, repositories.ErrAlreadyExists)
	case strings.HasPrefix(res, createSlot):
		holder := strings.TrimPrefix(res, createSlot)
		log.Debug(ctx, LogSlotTaken, zap.String("holderID", holder))
		return &repositories.DaySlotError{NoteID: holder}
	default:
		return repositories.Unavailable(ErrCreateNote, fmt.Errorf("unexpected script result %q", res))
	}
}

// FindActiveForDay возвращает активную заметку владельца за день или nil.
func (r *NoteRepository) FindActiveForDay(ctx context.Context, email, day string) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.FindActiveForDay"))

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	id, err := r.client.Get(opCtx, slotKey(day, email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		log.Error(ctx, ErrFindNote, zap.String("day", day), zap.Error(err))
		return nil, repositories.Unavailable(ErrFindNote, err)
	}

	note, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if note == nil || !note.IsActive() || note.Email != email || note.Day != day {
		return nil, nil
	}
	return note, nil
}

// ReplaceItems перезаписывает пункты активной заметки.
func (r *NoteRepository) ReplaceItems(ctx context.Context, noteID string, items []string, now time.Time) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.ReplaceItems"), zap.String("noteID", noteID))

	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrReplaceItems, err)
	}

	n, err := replaceScript.Run(ctx, r.client, []string{noteKey(noteID)}, string(itemsJSON), formatTime(now)).Int()
	if err != nil {
		log.Error(ctx, ErrReplaceItems, zap.Error(err))
		return repositories.Unavailable(ErrReplaceItems, err)
	}
	if n == 0 {
		log.Debug(ctx, LogReplaceInactive)
		return fmt.Errorf("%s: %w", ErrReplaceItems, repositories.ErrNotFound)
	}

	log.Debug(ctx, LogItemsReplaced)
	return nil
}

// GetByID возвращает заметку в любом статусе или nil.
func (r *NoteRepository) GetByID(ctx context.Context, noteID string) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.GetByID"), zap.String("noteID", noteID))

	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	fields, err := r.client.HGetAll(ctx, noteKey(noteID)).Result()
	if err != nil {
		log.Error(ctx, ErrGetNote, zap.Error(err))
		return nil, repositories.Unavailable(ErrGetNote, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	note, err := decodeNote(fields)
	if err != nil {
		log.Error(ctx, ErrDecodeNote, zap.Error(err))
		return nil, repositories.Unavailable(ErrGetNote, err)
	}
	return note, nil
}

// SoftDelete помечает заметку удаленной. Повторный вызов ничего не меняет.
func (r *NoteRepository) SoftDelete(ctx context.Context, noteID string, now time.Time) error {
	_, err := r.markDeleted(ctx, "NoteRepository.SoftDelete", noteID, now, false)
	return err
}

// Archive помечает заметку удаленной и проставляет archived_at.
// Возвращает true, если переход выполнен этим вызовом.
func (r *NoteRepository) Archive(ctx context.Context, noteID string, now time.Time) (bool, error) {
	return r.markDeleted(ctx, "NoteRepository.Archive", noteID, now, true)
}

func (r *NoteRepository) markDeleted(ctx context.Context, method, noteID string, now time.Time, archive bool) (bool, error) {
	log := logger.Log(ctx).With(zap.String("method", method), zap.String("noteID", noteID))

	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	flag := "0"
	if archive {
		flag = "1"
	}

	n, err := deleteScript.Run(ctx, r.client, []string{noteKey(noteID)}, formatTime(now), flag, slotKeyPrefix).Int()
	if err != nil {
		log.Error(ctx, ErrDeleteNote, zap.Error(err))
		return false, repositories.Unavailable(ErrDeleteNote, err)
	}

	switch n {
	case -1:
		return false, fmt.Errorf("%s: %w", ErrDeleteNote, repositories.ErrNotFound)
	case 0:
		return false, nil
	default:
		if archive {
			log.Debug(ctx, LogNoteArchived)
		} else {
			log.Debug(ctx, LogNoteDeleted)
		}
		return true, nil
	}
}

// ListActiveForDay возвращает активные заметки за день, новые первыми.
func (r *NoteRepository) ListActiveForDay(ctx context.Context, day string) ([]*entities.Note, error) {
	all, err := r.ListAllForDay(ctx, day)
	if err != nil {
		return nil, err
	}

	active := make([]*entities.Note, 0, len(all))
	for _, note := range all {
		if note.IsActive() {
			active = append(active, note)
		}
	}
	return active, nil
}

// ListAllForDay возвращает все заметки за день, включая удаленные.
// Индекс дня читается постранично до конца.
func (r *NoteRepository) ListAllForDay(ctx context.Context, day string) ([]*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.ListAllForDay"), zap.String("day", day))

	notes := make([]*entities.Note, 0)
	seen := make(map[string]struct{})

	for start := int64(0); ; start += r.pageSize {
		page, err := r.listPage(ctx, day, start)
		if err != nil {
			log.Error(ctx, ErrListNotes, zap.Int64("offset", start), zap.Error(err))
			return nil, repositories.Unavailable(ErrListNotes, err)
		}

		for _, fields := range page.records {
			if len(fields) == 0 {
				continue
			}
			note, err := decodeNote(fields)
			if err != nil {
				log.Warn(ctx, LogDamagedRecord, zap.String("noteID", fields[fieldID]), zap.Error(err))
				continue
			}
			if _, dup := seen[note.ID]; dup {
				continue
			}
			seen[note.ID] = struct{}{}
			notes = append(notes, note)
		}

		if page.size < r.pageSize {
			break
		}
	}

	return notes, nil
}

type listPage struct {
	size    int64
	records []map[string]string
}

func (r *NoteRepository) listPage(ctx context.Context, day string, start int64) (listPage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	ids, err := r.client.ZRevRange(ctx, dayKey(day), start, start+r.pageSize-1).Result()
	if err != nil {
		return listPage{}, err
	}
	if len(ids) == 0 {
		return listPage{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, noteKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return listPage{}, err
	}

	records := make([]map[string]string, len(cmds))
	for i, cmd := range cmds {
		records[i] = cmd.Val()
	}
	return listPage{size: int64(len(ids)), records: records}, nil
}

// Ping проверяет доступность Redis.
func (r *NoteRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return repositories.Unavailable(ErrPing, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(fields map[string]string, key string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, fields[key])
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", key, err)
	}
	return t, nil
}

func parseOptionalTime(fields map[string]string, key string) (*time.Time, error) {
	if fields[key] == "" {
		return nil, nil
	}
	t, err := parseTime(fields, key)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeNote(fields map[string]string) (*entities.Note, error) {
	note := &entities.Note{
		ID:         fields[fieldID],
		Name:       fields[fieldName],
		Email:      fields[fieldEmail],
		Day:        fields[fieldDay],
		Status:     entities.Status(fields[fieldStatus]),
		OwnerToken: fields[fieldOwnerToken],
	}
	if note.ID == "" {
		return nil, errors.New("missing id")
	}

	if err := json.Unmarshal([]byte(fields[fieldItems]), &note.Items); err != nil {
		return nil, fmt.Errorf("field %s: %w", fieldItems, err)
	}

	var err error
	if note.CreatedAt, err = parseTime(fields, fieldCreatedAt); err != nil {
		return nil, err
	}
	if note.UpdatedAt, err = parseTime(fields, fieldUpdatedAt); err != nil {
		return nil, err
	}
	if note.ExpiresAt, err = parseTime(fields, fieldExpiresAt); err != nil {
		return nil, err
	}
	if note.DeletedAt, err = parseOptionalTime(fields, fieldDeletedAt); err != nil {
		return nil, err
	}
	if note.ArchivedAt, err = parseOptionalTime(fields, fieldArchivedAt); err != nil {
		return nil, err
	}

	return note, nil
}
