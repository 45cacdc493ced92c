// Package middleware содержит промежуточное ПО для HTTP обработчиков.
package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

// Значения заголовков CORS.
const (
	AllowHeaders = "*"
	AllowMethods = "OPTIONS,GET,PUT,POST,DELETE"
	AnyOrigin    = "*"
)

var allowMethods = []string{
	fiber.MethodOptions, fiber.MethodGet, fiber.MethodPut, fiber.MethodPost, fiber.MethodDelete,
}

// NewCORSMiddleware настраивает CORS. Пустой список или "*" разрешает любой источник.
func NewCORSMiddleware(origins []string) fiber.Handler {
	if len(origins) == 0 {
		origins = []string{AnyOrigin}
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: []string{AllowHeaders},
		AllowMethods: allowMethods,
	})
}

// NewOptionsHandler отвечает 204 на OPTIONS без заголовков preflight,
// которые cors пропускает дальше по цепочке.
func NewOptionsHandler() fiber.Handler {
	return func(ctx fiber.Ctx) error {
		if ctx.Method() == fiber.MethodOptions {
			return ctx.SendStatus(fiber.StatusNoContent)
		}
		return ctx.Next()
	}
}
