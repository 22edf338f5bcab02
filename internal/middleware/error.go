package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/lavapop/cashcast/internal/logging"
	"github.com/lavapop/cashcast/internal/models"
	"github.com/lavapop/cashcast/internal/services"
)

// StatusForCode maps a service error code to its HTTP status.
func StatusForCode(code string) int {
	switch code {
	case services.CodeInsufficientData:
		return fiber.StatusUnprocessableEntity
	case services.CodeUpstreamFetchFailed:
		return fiber.StatusBadGateway
	case services.CodeModelNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler returns a custom error handler middleware. Service errors keep
// their code and details; fiber errors keep their status.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		detail := models.ErrorDetail{
			Code:    "ERROR",
			Message: "Internal Server Error",
		}

		var se *services.ServiceError
		var fe *fiber.Error
		switch {
		case errors.As(err, &se):
			status = StatusForCode(se.Code)
			detail.Code = se.Code
			detail.Message = se.Message
			detail.Details = se.Details
		case errors.As(err, &fe):
			status = fe.Code
			detail.Message = fe.Message
		}

		if id, ok := c.Locals("request_id").(string); ok {
			detail.RequestID = id
		}

		log := logger.WithContext(c.UserContext())
		if status >= fiber.StatusInternalServerError {
			log.Error("Request error",
				"path", c.Path(),
				"method", c.Method(),
				"status", status,
				"error", err,
			)
		} else {
			log.Warn("Request rejected",
				"path", c.Path(),
				"method", c.Method(),
				"status", status,
				"code", detail.Code,
			)
		}

		return c.Status(status).JSON(models.ErrorResponse{Error: detail})
	}
}
