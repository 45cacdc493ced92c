package http

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"gratitudeboard/internal/notes/config"
	"gratitudeboard/pkg/logger"
)

// Константы для логирования.
const (
	LogStartingServer = "starting HTTP server"
	LogStoppingServer = "stopping HTTP server"
	LogServerStopped  = "HTTP server stopped"

	ErrServe = "failed to serve HTTP"
)

// Server представляет HTTP сервер заметок.
type Server struct {
	app    *fiber.App
	config *config.HTTPConfig
}

// NewServer создает HTTP сервер с настроенными маршрутами.
func NewServer(cfg *config.HTTPConfig, notes NoteUseCase, health HealthChecker) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "gratitudeboard",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BodyLimit:    cfg.BodyLimit,
		UnescapePath: true,
	})
	SetupRouter(app, NewHandler(notes, health), cfg.GetCORSOrigins())

	return &Server{app: app, config: cfg}
}

// App возвращает приложение fiber.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start запускает сервер и блокируется до его остановки.
func (s *Server) Start(ctx context.Context) error {
	address := s.config.GetAddress()
	logger.Log(ctx).Info(ctx, LogStartingServer, zap.String("address", address))

	if err := s.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("%s: %w", ErrServe, err)
	}
	return nil
}

// Stop корректно останавливает сервер в пределах ctx.
func (s *Server) Stop(ctx context.Context) error {
	log := logger.Log(ctx)
	log.Info(ctx, LogStoppingServer)

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", LogStoppingServer, err)
	}
	log.Info(ctx, LogServerStopped)
	return nil
}
