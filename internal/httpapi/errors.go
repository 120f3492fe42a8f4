package httpapi

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/dealdesk/dealdesk/internal/logging"
)

// NewErrorHandler returns the boundary error handler: every failure leaves
// the server as a JSON body with a human-readable message and the status
// carried by the rich error. The core never writes error responses itself.
func NewErrorHandler(logger logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var rich *goerrors.Error
		if goerrors.As(err, &rich) {
			status := rich.Code
			if status < fiber.StatusBadRequest {
				status = fiber.StatusInternalServerError
			}

			message := rich.Message
			if status >= fiber.StatusInternalServerError {
				logger.Error("request failed: %s %s: %v", c.Method(), c.Path(), err)
			}

			body := fiber.Map{"message": message}
			if rich.TextCode != "" {
				body["code"] = rich.TextCode
			}
			return c.Status(status).JSON(body)
		}

		var verrs validation.Errors
		if errors.As(err, &verrs) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
				"errors":  verrs,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
		}

		logger.Error("unhandled error: %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}
}
