package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

const actorHeader = "X-Actor-Id"

// Audit emits a structured log per request with the acting administrator,
// giving the back-office an actor trail alongside the plain access log.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		duration := time.Since(start)
		requestID, _ := c.Locals(requestIDHeader).(string)

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", duration),
		}
		if actor := c.Get(actorHeader); actor != "" {
			attrs = append(attrs, slog.String("actor", actor))
		}
		if requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request completed", attrs...)
			return err
		}

		logger.Info("request completed", attrs...)
		return nil
	}
}
