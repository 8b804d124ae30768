package blog

import (
	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the public blog. ?lang= returns localized views.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		posts, err := svc.List(c.UserContext(), c.Query("category"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return render(c, posts)
	})

	r.Get("/featured", func(c *fiber.Ctx) error {
		posts, err := svc.Featured(c.UserContext())
		if err != nil {
			return apperr.Fiber(err)
		}
		return render(c, posts)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		p, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return apperr.Fiber(err)
		}
		if c.Query("lang") == "" {
			return c.JSON(p)
		}
		return c.JSON(p.View(i18n.ParseLang(c.Query("lang"), i18n.Base)))
	})
}

func render(c *fiber.Ctx, posts []Post) error {
	if c.Query("lang") == "" {
		return c.JSON(posts)
	}
	lang := i18n.ParseLang(c.Query("lang"), i18n.Base)
	views := make([]View, 0, len(posts))
	for _, p := range posts {
		views = append(views, p.View(lang))
	}
	return c.JSON(views)
}

func RegisterAdminRoutes(r fiber.Router, svc *Service) {
	r.Post("/", func(c *fiber.Ctx) error {
		var req Post
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		p, err := svc.Create(c.UserContext(), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "id": p.ID, "post": p})
	})

	r.Patch("/:id", func(c *fiber.Ctx) error {
		var req Patch
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		p, err := svc.Update(c.UserContext(), c.Params("id"), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"success": true, "post": p})
	})

	r.Delete("/:id", func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"success": true})
	})
}
