package comment

import (
	"backend-mongoliatrails/internal/auth"
	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the public review routes. optionalAuth identifies
// signed-in reviewers without turning anonymous ones away.
func RegisterRoutes(r fiber.Router, svc *Service, optionalAuth fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		comments, err := svc.ListApproved(c.UserContext(), c.Query("lang"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"success": true, "comments": comments})
	})

	r.Post("/", optionalAuth, func(c *fiber.Ctx) error {
		var req SubmitRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if _, err := svc.Submit(c.UserContext(), auth.UserID(c), req); err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Review submitted! It will appear after approval.",
		})
	})
}

// RegisterAdminRoutes mounts moderation on an admin-only router.
func RegisterAdminRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		comments, err := svc.ListAll(c.UserContext())
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"success": true, "comments": comments})
	})

	r.Post("/", func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		created, err := svc.Create(c.UserContext(), auth.UserID(c), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "commentId": created.ID, "comment": created})
	})

	r.Patch("/:id", func(c *fiber.Ctx) error {
		var req Patch
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		updated, err := svc.Update(c.UserContext(), c.Params("id"), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"success": true, "comment": updated})
	})

	r.Delete("/:id", func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"success": true})
	})
}
