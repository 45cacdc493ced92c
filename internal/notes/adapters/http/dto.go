package http

import "gratitudeboard/internal/notes/domain/entities"

// SubmitNoteRequest - тело запроса POST /notes.
type SubmitNoteRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	GratitudeText string `json:"gratitudeText"`
}

// SubmitNoteResponse - результат создания или замены заметки.
// Токен владельца отдается только при создании.
type SubmitNoteResponse struct {
	ID         string `json:"id"`
	OwnerToken string `json:"owner_token,omitempty"`
	Created    bool   `json:"created"`
}

// TodayNotesResponse - список заметок текущего дня.
type TodayNotesResponse struct {
	Items []*entities.PublicNote `json:"items"`
}

// DeleteNoteResponse - результат удаления заметки.
type DeleteNoteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// HealthResponse - состояние сервиса.
type HealthResponse struct {
	Status string `json:"status"`
}
