package server

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/addyspiller/prisere/internal/auth"
	"github.com/addyspiller/prisere/internal/common"
)

const (
	localUserID    = "user_id"
	localRequestID = "request_id"
)

// RequestLogger logs every request with structured fields.
func RequestLogger(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := uuid.NewString()
		c.Locals(localRequestID, requestID)
		c.SetUserContext(common.WithRequestID(c.UserContext(), requestID))

		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []any{
			"request_id", requestID,
			"method", c.Method(),
			"path", c.OriginalURL(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
		}
		switch {
		case err != nil || status >= 500:
			log.Error("http.request", append(attrs, "error", err)...)
		case status >= 400:
			log.Warn("http.request", attrs...)
		default:
			log.Info("http.request", attrs...)
		}
		return err
	}
}

// Authenticate resolves the caller through the configured identity provider
// and stores the user id in request locals. Handlers never see tokens.
func Authenticate(provider auth.Provider, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := provider.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			log.Warn("http.auth.rejected", "path", c.Path(), "error", err)
			return RespondWithAppError(c, err, "not found")
		}
		c.Locals(localUserID, identity.UserID)
		c.SetUserContext(common.WithUserID(c.UserContext(), identity.UserID))
		return c.Next()
	}
}

// currentUserID reads the authenticated user set by Authenticate.
func currentUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals(localUserID).(string); ok {
		return id
	}
	return ""
}
