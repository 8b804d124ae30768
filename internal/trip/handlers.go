package trip

import (
	"strconv"
	"strings"

	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the public catalog. With ?lang= trips come back as
// localized views, without it as the full multilingual documents.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		filter := Filter{
			Type:     c.Query("type"),
			Region:   c.Query("region"),
			Category: c.Query("category"),
			Limit:    c.QueryInt("limit"),
		}
		if ids := c.Query("id"); ids != "" {
			filter.IDs = strings.Split(ids, ",")
		}
		if raw := c.Query("featured"); raw != "" {
			featured, err := strconv.ParseBool(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "featured must be a boolean")
			}
			filter.Featured = &featured
		}
		if filter.Limit < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
		}

		trips, err := svc.List(c.UserContext(), filter)
		if err != nil {
			return apperr.Fiber(err)
		}
		if c.Query("lang") == "" {
			return c.JSON(trips)
		}
		lang := i18n.ParseLang(c.Query("lang"), i18n.Base)
		views := make([]View, 0, len(trips))
		for _, t := range trips {
			views = append(views, t.View(lang))
		}
		return c.JSON(views)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		t, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return apperr.Fiber(err)
		}
		if c.Query("lang") == "" {
			return c.JSON(t)
		}
		return c.JSON(t.View(i18n.ParseLang(c.Query("lang"), i18n.Base)))
	})
}

// RegisterAdminRoutes mounts catalog management on an admin-only router.
func RegisterAdminRoutes(r fiber.Router, svc *Service) {
	r.Post("/", func(c *fiber.Ctx) error {
		var req Trip
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		t, err := svc.Create(c.UserContext(), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	r.Patch("/:id", func(c *fiber.Ctx) error {
		var req Patch
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		t, err := svc.Update(c.UserContext(), c.Params("id"), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(t)
	})

	r.Delete("/:id", func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return apperr.Fiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/dates", func(c *fiber.Ctx) error {
		var req Departure
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		d, err := svc.AddDeparture(c.UserContext(), c.Params("id"), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(d)
	})

	r.Patch("/:id/dates/:dateId", func(c *fiber.Ctx) error {
		var req DeparturePatch
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		d, err := svc.UpdateDeparture(c.UserContext(), c.Params("id"), c.Params("dateId"), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(d)
	})

	r.Delete("/:id/dates/:dateId", func(c *fiber.Ctx) error {
		if err := svc.RemoveDeparture(c.UserContext(), c.Params("id"), c.Params("dateId")); err != nil {
			return apperr.Fiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
