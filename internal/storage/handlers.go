package storage

import (
	"backend-mongoliatrails/internal/auth"
	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

// RegisterAdminRoutes mounts the multipart upload endpoint.
func RegisterAdminRoutes(r fiber.Router, svc *Service) {
	r.Post("/", func(c *fiber.Ctx) error {
		header, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		file, err := header.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid file")
		}
		defer file.Close()

		obj, err := svc.Upload(c.UserContext(), auth.UserID(c), c.FormValue("kind"), header.Filename, header.Size, file)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	})
}
