package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"gratitudeboard/pkg/logger"
)

// Константы для логирования.
const (
	LogServerPanic       = "server panic"
	LogPanicResponseFail = "failed to send error response after panic"

	MsgInternalError = "Internal server error."
)

// NewRecoveryMiddleware перехватывает панику обработчика и отвечает 500.
func NewRecoveryMiddleware() fiber.Handler {
	return func(ctx fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				requestCtx := RequestContext(ctx)
				log := logger.Log(requestCtx)
				log.Error(requestCtx, LogServerPanic,
					zap.String("error", fmt.Sprintf("%v", r)),
					zap.String("stack", string(debug.Stack())),
				)

				if sendErr := ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": MsgInternalError,
				}); sendErr != nil {
					log.Error(requestCtx, LogPanicResponseFail, zap.Error(sendErr))
				}
				err = nil
			}
		}()

		return ctx.Next()
	}
}
