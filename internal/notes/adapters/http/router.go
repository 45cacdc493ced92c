package http

import (
	"github.com/gofiber/fiber/v3"

	"gratitudeboard/internal/notes/adapters/http/middleware"
)

// APIPrefix - префикс всех маршрутов API.
const APIPrefix = "/api/v1"

// SetupRouter настраивает маршрутизацию HTTP сервера.
func SetupRouter(app *fiber.App, handler *Handler, corsOrigins []string) {
	app.Use(middleware.NewLoggerMiddleware())
	app.Use(middleware.NewRecoveryMiddleware())
	app.Use(middleware.NewCORSMiddleware(corsOrigins))
	app.Use(middleware.NewOptionsHandler())

	apiV1 := app.Group(APIPrefix)
	apiV1.Get("/healthz", handler.Health)

	notes := apiV1.Group("/notes")
	notes.Post("/", handler.SubmitNote)
	notes.Get("/today", handler.ListToday)
	notes.Get("/:id", handler.GetNote)
	notes.Delete("/:id", handler.DeleteNote)

	app.Use(NotFound)
}
