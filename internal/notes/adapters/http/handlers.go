// Package http содержит HTTP-транспорт сервиса заметок на fiber.
package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"gratitudeboard/internal/notes/adapters/http/middleware"
	"gratitudeboard/internal/notes/app"
	"gratitudeboard/internal/notes/domain/entities"
	"gratitudeboard/internal/notes/domain/validation"
	"gratitudeboard/pkg/logger"
)

// MaxNoteIDLength - максимальная длина идентификатора в пути.
const MaxNoteIDLength = 64

// Сообщения для клиента.
const (
	MsgIDRequired    = "Path parameter 'id' is required."
	MsgIDEmpty       = "Path parameter 'id' must be a non-empty string."
	MsgIDTooLong     = "Path parameter 'id' is too long."
	MsgTokenRequired = "Query parameter 'token' is required."
	MsgInvalidBody   = "Request body must be a JSON object."
	MsgNoteNotFound  = "Note not found."
	MsgInvalidToken  = "Invalid token."
	MsgSaveFailed    = "Failed to save gratitude note."
	MsgLoadFailed    = "Failed to load gratitude note."
	MsgDeleteFailed  = "Failed to delete gratitude note."
	MsgListFailed    = "Failed to load today's gratitude notes."
	MsgRouteNotFound = "Route not found."
)

// Состояния в ответе /healthz.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// Константы для логирования.
const (
	LogHandlerSubmitNote = "handling submit note request"
	LogHandlerGetNote    = "handling get note request"
	LogHandlerDeleteNote = "handling delete note request"
	LogHandlerListToday  = "handling list today request"
	LogHealthCheckFailed = "health check failed"

	ErrSendResponse = "error sending response"
)

const bearerPrefix = "Bearer "

// NoteUseCase - операции жизненного цикла заметок, нужные транспорту.
type NoteUseCase interface {
	Submit(ctx context.Context, sub validation.Submission) (*entities.Note, bool, error)
	Get(ctx context.Context, noteID string) (*entities.Note, error)
	Delete(ctx context.Context, noteID, token string) error
	ListToday(ctx context.Context) ([]*entities.PublicNote, error)
}

// HealthChecker проверяет доступность хранилища.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler обрабатывает HTTP-запросы к заметкам.
type Handler struct {
	notes  NoteUseCase
	health HealthChecker
}

// NewHandler создает обработчик.
func NewHandler(notes NoteUseCase, health HealthChecker) *Handler {
	return &Handler{notes: notes, health: health}
}

// SubmitNote создает заметку на сегодня или заменяет пункты существующей.
func (h *Handler) SubmitNote(ctx fiber.Ctx) error {
	requestCtx := middleware.RequestContext(ctx)
	log := logger.Log(requestCtx).With(zap.String("handler", "Handler.SubmitNote"))
	log.Debug(requestCtx, LogHandlerSubmitNote)

	var req SubmitNoteRequest
	if err := ctx.Bind().Body(&req); err != nil {
		log.Debug(requestCtx, MsgInvalidBody, zap.Error(err))
		return sendError(ctx, fiber.StatusBadRequest, ErrorResponse{Message: MsgInvalidBody})
	}

	note, created, err := h.notes.Submit(requestCtx, validation.Submission{
		Name:  req.Name,
		Email: req.Email,
		Text:  req.GratitudeText,
	})
	if err != nil {
		return handleError(ctx, err, MsgSaveFailed)
	}

	if !created {
		return send(ctx, fiber.StatusOK, SubmitNoteResponse{ID: note.ID})
	}
	return send(ctx, fiber.StatusCreated, SubmitNoteResponse{ID: note.ID, OwnerToken: note.OwnerToken, Created: true})
}

// GetNote возвращает активную заметку по идентификатору.
func (h *Handler) GetNote(ctx fiber.Ctx) error {
	requestCtx := middleware.RequestContext(ctx)
	log := logger.Log(requestCtx).With(zap.String("handler", "Handler.GetNote"))
	log.Debug(requestCtx, LogHandlerGetNote)

	noteID, msg := pathID(ctx)
	if msg != "" {
		return sendError(ctx, fiber.StatusBadRequest, ErrorResponse{Message: msg})
	}

	note, err := h.notes.Get(requestCtx, noteID)
	if err != nil {
		return handleError(ctx, err, MsgLoadFailed)
	}
	return send(ctx, fiber.StatusOK, note.Public())
}

// DeleteNote мягко удаляет заметку. Токен передается в ?token= или заголовком Authorization: Bearer.
func (h *Handler) DeleteNote(ctx fiber.Ctx) error {
	requestCtx := middleware.RequestContext(ctx)
	log := logger.Log(requestCtx).With(zap.String("handler", "Handler.DeleteNote"))
	log.Debug(requestCtx, LogHandlerDeleteNote)

	noteID, msg := pathID(ctx)
	if msg != "" {
		return sendError(ctx, fiber.StatusBadRequest, ErrorResponse{Message: msg})
	}

	token := ownerToken(ctx)
	if token == "" {
		return sendError(ctx, fiber.StatusBadRequest, ErrorResponse{Message: MsgTokenRequired})
	}

	if err := h.notes.Delete(requestCtx, noteID, token); err != nil {
		return handleError(ctx, err, MsgDeleteFailed)
	}
	return send(ctx, fiber.StatusOK, DeleteNoteResponse{ID: noteID, Deleted: true})
}

// ListToday возвращает активные заметки текущего дня UTC.
func (h *Handler) ListToday(ctx fiber.Ctx) error {
	requestCtx := middleware.RequestContext(ctx)
	logger.Log(requestCtx).With(zap.String("handler", "Handler.ListToday")).Debug(requestCtx, LogHandlerListToday)

	notes, err := h.notes.ListToday(requestCtx)
	if err != nil {
		return handleError(ctx, err, MsgListFailed)
	}
	return send(ctx, fiber.StatusOK, TodayNotesResponse{Items: notes})
}

// Health отвечает 200, если хранилище доступно, иначе 503.
func (h *Handler) Health(ctx fiber.Ctx) error {
	requestCtx := middleware.RequestContext(ctx)
	if h.health != nil {
		if err := h.health.Ping(requestCtx); err != nil {
			logger.Log(requestCtx).Warn(requestCtx, LogHealthCheckFailed, zap.Error(err))
			return send(ctx, fiber.StatusServiceUnavailable, HealthResponse{Status: StatusUnavailable})
		}
	}
	return send(ctx, fiber.StatusOK, HealthResponse{Status: StatusOK})
}

// NotFound отвечает на запросы к несуществующим маршрутам.
func NotFound(ctx fiber.Ctx) error {
	return sendError(ctx, fiber.StatusNotFound, ErrorResponse{Message: MsgRouteNotFound})
}

func pathID(ctx fiber.Ctx) (string, string) {
	raw := ctx.Params("id")
	if raw == "" {
		return "", MsgIDRequired
	}
	noteID := strings.TrimSpace(raw)
	if noteID == "" {
		return "", MsgIDEmpty
	}
	if utf8.RuneCountInString(noteID) > MaxNoteIDLength {
		return "", MsgIDTooLong
	}
	return noteID, ""
}

func ownerToken(ctx fiber.Ctx) string {
	if token := strings.TrimSpace(ctx.Query("token")); token != "" {
		return token
	}
	auth := ctx.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))
	}
	return ""
}

// handleError переводит ошибку бизнес-логики в HTTP-ответ.
// Детали ошибок хранилища клиенту не передаются.
func handleError(ctx fiber.Ctx, err error, failureMsg string) error {
	var validationErr *validation.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return sendError(ctx, fiber.StatusBadRequest, ErrorResponse{Message: validationErr.Reason, Field: validationErr.Field})
	case errors.Is(err, app.ErrInvalidInput):
		return sendError(ctx, fiber.StatusBadRequest, ErrorResponse{Message: err.Error()})
	case errors.Is(err, app.ErrNotFound):
		return sendError(ctx, fiber.StatusNotFound, ErrorResponse{Message: MsgNoteNotFound})
	case errors.Is(err, app.ErrForbidden):
		return sendError(ctx, fiber.StatusForbidden, ErrorResponse{Message: MsgInvalidToken})
	}

	requestCtx := middleware.RequestContext(ctx)
	logger.Log(requestCtx).Error(requestCtx, failureMsg, zap.Error(err))
	return sendError(ctx, fiber.StatusInternalServerError, ErrorResponse{Message: failureMsg})
}

func sendError(ctx fiber.Ctx, status int, body ErrorResponse) error {
	return send(ctx, status, body)
}

func send(ctx fiber.Ctx, status int, body any) error {
	if err := ctx.Status(status).JSON(body); err != nil {
		return fmt.Errorf("%s: %w", ErrSendResponse, err)
	}
	return nil
}
