package middleware

import (
	"time"

	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
)

func LoggingMiddleware(logger *utils.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		if err == nil {
			if hidden, ok := c.Locals(utils.LocalsError).(error); ok {
				err = hidden
			}
		}

		status := c.Response().StatusCode()
		kv := []interface{}{
			"ip", c.IP(),
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start),
			"user_agent", c.Get(fiber.HeaderUserAgent),
		}
		if identity, ok := IdentityFrom(c); ok {
			kv = append(kv, "user_id", identity.UserID)
		}
		switch {
		case status >= 500:
			logger.Error("request", append(kv, "error", err)...)
		case err != nil:
			logger.Warn("request", append(kv, "error", err)...)
		default:
			logger.Info("request", kv...)
		}
		return err
	}
}
