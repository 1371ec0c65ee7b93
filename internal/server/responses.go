package server

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/addyspiller/prisere/internal/common"
)

// RespondWithError sends a JSON error response.
func RespondWithError(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}

// RespondWithJSON sends a JSON success response. Success bodies are the
// payload itself; only errors carry the {status, message} envelope.
func RespondWithJSON(c *fiber.Ctx, statusCode int, data interface{}) error {
	return c.Status(statusCode).JSON(data)
}

// RespondWithAppError maps the error taxonomy onto HTTP statuses.
func RespondWithAppError(c *fiber.Ctx, err error, notFoundMessage string) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return RespondWithError(c, fiber.StatusNotFound, notFoundMessage)
	case errors.Is(err, common.ErrInvalidInput):
		return RespondWithError(c, fiber.StatusBadRequest, userMessage(err))
	case errors.Is(err, common.ErrUnauthorized):
		return RespondWithError(c, fiber.StatusUnauthorized, userMessage(err))
	case errors.Is(err, common.ErrConflict):
		return RespondWithError(c, fiber.StatusConflict, userMessage(err))
	default:
		return RespondWithError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

// userMessage extracts the safe message from an AppError, hiding wrapped
// internals.
func userMessage(err error) string {
	var app *common.AppError
	if errors.As(err, &app) {
		return app.Message
	}
	return err.Error()
}

// FormatValidationErrors formats validation errors from validator/v10.
func FormatValidationErrors(err error) []string {
	var out []string
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			element := fmt.Sprintf("Field '%s' failed on the '%s' tag", fe.Field(), fe.Tag())
			if fe.Param() != "" {
				element = fmt.Sprintf("%s (value: %s)", element, fe.Param())
			}
			out = append(out, element)
		}
		return out
	}
	return []string{err.Error()}
}
