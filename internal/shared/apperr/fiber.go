package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Fiber converts a service error into a *fiber.Error carrying the mapped
// status. Internal errors hide their message from clients.
func Fiber(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	status := Status(err)
	if status == fiber.StatusInternalServerError {
		return fiber.NewError(status, "internal server error")
	}
	return fiber.NewError(status, err.Error())
}

// ErrorHandler renders every error as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	fe, _ := Fiber(err).(*fiber.Error)
	if fe == nil {
		fe = fiber.ErrInternalServerError
	}
	return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
}
