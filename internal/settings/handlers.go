package settings

import (
	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		out, err := svc.Get(c.UserContext())
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(out)
	})
}

func RegisterAdminRoutes(r fiber.Router, svc *Service) {
	RegisterRoutes(r, svc)

	r.Post("/", func(c *fiber.Ctx) error {
		var req Settings
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		saved, err := svc.Save(c.UserContext(), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"success": true, "settings": saved})
	})
}
