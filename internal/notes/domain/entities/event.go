package entities

import (
	"fmt"
	"time"
)

// EventKind - закрытый набор событий жизненного цикла заметки.
type EventKind int

// События жизненного цикла.
const (
	EventNoteCreated EventKind = iota + 1
	EventNoteUpdated
	EventNoteDeleted
)

func (k EventKind) String() string {
	switch k {
	case EventNoteCreated:
		return "note.created"
	case EventNoteUpdated:
		return "note.updated"
	case EventNoteDeleted:
		return "note.deleted"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// CarriesItems сообщает, передает ли событие содержимое заметки.
func (k EventKind) CarriesItems() bool {
	return k == EventNoteCreated || k == EventNoteUpdated
}

// NoteEvent - уведомление о изменении заметки.
type NoteEvent struct {
	Kind       EventKind
	NoteID     string
	Items      []string
	OccurredAt time.Time
}

// NewNoteEvent строит событие по заметке. Для удаления содержимое не передается.
func NewNoteEvent(kind EventKind, note *Note, at time.Time) NoteEvent {
	ev := NoteEvent{
		Kind:       kind,
		NoteID:     note.ID,
		OccurredAt: at.UTC(),
	}
	if kind.CarriesItems() {
		ev.Items = append([]string(nil), note.Items...)
	}
	return ev
}
