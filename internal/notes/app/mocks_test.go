package app_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"gratitudeboard/internal/notes/domain/entities"
	"gratitudeboard/internal/notes/ports/repositories"
)

type mockNoteRepository struct {
	mock.Mock
}

func (m *mockNoteRepository) Create(ctx context.Context, note *entities.Note) error {
	return m.Called(ctx, note).Error(0)
}

func (m *mockNoteRepository) FindActiveForDay(ctx context.Context, email, day string) (*entities.Note, error) {
	args := m.Called(ctx, email, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Note), args.Error(1)
}

func (m *mockNoteRepository) ReplaceItems(ctx context.Context, noteID string, items []string, now time.Time) error {
	return m.Called(ctx, noteID, items, now).Error(0)
}

func (m *mockNoteRepository) GetByID(ctx context.Context, noteID string) (*entities.Note, error) {
	args := m.Called(ctx, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Note), args.Error(1)
}

func (m *mockNoteRepository) SoftDelete(ctx context.Context, noteID string, now time.Time) error {
	return m.Called(ctx, noteID, now).Error(0)
}

func (m *mockNoteRepository) Archive(ctx context.Context, noteID string, now time.Time) (bool, error) {
	args := m.Called(ctx, noteID, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockNoteRepository) ListActiveForDay(ctx context.Context, day string) ([]*entities.Note, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Note), args.Error(1)
}

func (m *mockNoteRepository) ListAllForDay(ctx context.Context, day string) ([]*entities.Note, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Note), args.Error(1)
}

func (m *mockNoteRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event entities.NoteEvent) error {
	return m.Called(ctx, event).Error(0)
}

// memoryStore - хранилище в памяти с той же семантикой слота (email, day), что и у настоящих.
type memoryStore struct {
	mu    sync.Mutex
	notes map[string]*entities.Note
	slots map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{notes: map[string]*entities.Note{}, slots: map[string]string{}}
}

func slotOf(email, day string) string { return day + "|" + email }

func clone(n *entities.Note) *entities.Note {
	c := *n
	c.Items = append([]string(nil), n.Items...)
	return &c
}

func (s *memoryStore) Create(_ context.Context, note *entities.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[note.ID]; ok {
		return repositories.ErrAlreadyExists
	}
	key := slotOf(note.Email, note.Day)
	if holder, ok := s.slots[key]; ok && s.notes[holder].IsActive() {
		return &repositories.DaySlotError{NoteID: holder}
	}
	s.notes[note.ID] = clone(note)
	s.slots[key] = note.ID
	return nil
}

func (s *memoryStore) FindActiveForDay(_ context.Context, email, day string) (*entities.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.slots[slotOf(email, day)]
	if !ok || !s.notes[id].IsActive() {
		return nil, nil
	}
	return clone(s.notes[id]), nil
}

func (s *memoryStore) ReplaceItems(_ context.Context, noteID string, items []string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[noteID]
	if !ok || !n.IsActive() {
		return repositories.ErrNotFound
	}
	n.Items = append([]string(nil), items...)
	n.UpdatedAt = now
	return nil
}

func (s *memoryStore) GetByID(_ context.Context, noteID string) (*entities.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[noteID]
	if !ok {
		return nil, nil
	}
	return clone(n), nil
}

func (s *memoryStore) SoftDelete(ctx context.Context, noteID string, now time.Time) error {
	_, err := s.markDeleted(noteID, now, false)
	return err
}

func (s *memoryStore) Archive(_ context.Context, noteID string, now time.Time) (bool, error) {
	return s.markDeleted(noteID, now, true)
}

func (s *memoryStore) markDeleted(noteID string, now time.Time, archive bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[noteID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if !n.IsActive() {
		return false, nil
	}
	n.Status = entities.StatusDeleted
	n.DeletedAt = &now
	if archive {
		n.ArchivedAt = &now
	}
	if key := slotOf(n.Email, n.Day); s.slots[key] == n.ID {
		delete(s.slots, key)
	}
	return true, nil
}

func (s *memoryStore) ListActiveForDay(ctx context.Context, day string) ([]*entities.Note, error) {
	all, _ := s.ListAllForDay(ctx, day)
	active := make([]*entities.Note, 0, len(all))
	for _, n := range all {
		if n.IsActive() {
			active = append(active, n)
		}
	}
	return active, nil
}

func (s *memoryStore) ListAllForDay(_ context.Context, day string) ([]*entities.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entities.Note, 0)
	for _, n := range s.notes {
		if n.Day == day {
			out = append(out, clone(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }

// recordingPublisher запоминает опубликованные события.
type recordingPublisher struct {
	mu     sync.Mutex
	events []entities.NoteEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event entities.NoteEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) kinds() []entities.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entities.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}
