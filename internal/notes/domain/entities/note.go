// Package entities defines the domain entities for the notes service.
package entities

import (
	"slices"
	"time"
)

// DayLayout - формат календарного дня заметки (ISO 8601).
const DayLayout = "2006-01-02"

// Status - состояние заметки. Переход возможен только active -> deleted.
type Status string

// Состояния заметки.
const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Note представляет собой заметку пользователя за один день.
type Note struct {
	ID         string
	Name       string
	Email      string
	Items      []string
	Day        string
	Status     Status
	OwnerToken string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
	ArchivedAt *time.Time
	ExpiresAt  time.Time
}

// PublicNote - представление заметки для чтения, без токена владельца и email.
type PublicNote struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Items     []string  `json:"note_items"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNote создает активную заметку на день, к которому относится now (UTC).
func NewNote(id, ownerToken, name, email string, items []string, now time.Time, ttl time.Duration) *Note {
	now = now.UTC()
	return &Note{
		ID:         id,
		Name:       name,
		Email:      email,
		Items:      slices.Clone(items),
		Day:        DayOf(now),
		Status:     StatusActive,
		OwnerToken: ownerToken,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

// DayOf возвращает календарный день момента t в его часовом поясе.
func DayOf(t time.Time) string {
	return t.Format(DayLayout)
}

// IsActive сообщает, активна ли заметка.
func (n *Note) IsActive() bool {
	return n.Status == StatusActive
}

// Public возвращает публичное представление заметки.
func (n *Note) Public() *PublicNote {
	return &PublicNote{
		ID:        n.ID,
		Name:      n.Name,
		Items:     slices.Clone(n.Items),
		Status:    n.Status,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
