package handlers

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"kedai/internal/apperrors"
)

// Guards are the auth middlewares handlers attach to their routes.
type Guards struct {
	Auth     fiber.Handler // valid token required
	Optional fiber.Handler // token attached when present
	Admin    fiber.Handler // admin role required, after Auth
}

func success(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func fail(c *fiber.Ctx, status int, message string, err error) error {
	body := fiber.Map{
		"success": false,
		"message": message,
	}
	if err != nil {
		body["error"] = err.Error()
	}
	return c.Status(status).JSON(body)
}

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrConsistency):
		return fiber.StatusConflict
	case errors.Is(err, apperrors.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Internal errors are logged
// and their detail is withheld from the client.
func respondError(c *fiber.Ctx, logger *zap.Logger, message string, err error) error {
	status := statusOf(err)
	if status == fiber.StatusInternalServerError {
		logger.Error(message, zap.String("path", c.Path()), zap.Error(err))
		return fail(c, status, message, nil)
	}
	if errors.Is(err, apperrors.ErrConsistency) {
		logger.Error(message, zap.String("path", c.Path()), zap.Bool("consistency", true), zap.Error(err))
		return fail(c, status, message, err)
	}
	logger.Debug(message, zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
	return fail(c, status, message, err)
}

func invalidBody(c *fiber.Ctx, err error) error {
	return fail(c, fiber.StatusBadRequest, "Invalid request body", err)
}

// validationFailed reports struct validation errors per field.
func validationFailed(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fail(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
