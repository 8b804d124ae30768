package booking

import (
	"backend-mongoliatrails/internal/auth"
	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

const idempotencyHeader = "Idempotency-Key"

// RegisterRoutes mounts the booking form and the user's own bookings.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		req.UserID = auth.UserID(c)

		b, err := svc.CreateBooking(c.UserContext(), CreateInput{
			CreateRequest:  req,
			Origin:         OriginPublic,
			IdempotencyKey: c.Get(idempotencyHeader),
		})
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "bookingId": b.ID, "booking": b})
	})

	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		dash, err := svc.ListUserBookings(c.UserContext(), auth.UserID(c))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(dash)
	})

	r.Get("/:id/receipt", authMiddleware, func(c *fiber.Ctx) error {
		pdf, err := svc.Receipt(c.UserContext(), c.Params("id"), auth.UserID(c), auth.IsAdmin(c))
		if err != nil {
			return apperr.Fiber(err)
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, `inline; filename="booking-`+c.Params("id")+`.pdf"`)
		return c.Send(pdf)
	})
}

// RegisterAdminRoutes mounts passenger management on an admin-only router.
func RegisterAdminRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		bookings, err := svc.ListActiveBookings(c.UserContext(), c.Query("tripId"), c.Query("dateId"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(bookings)
	})

	r.Post("/", func(c *fiber.Ctx) error {
		var req AdminCreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		b, err := svc.CreateBooking(c.UserContext(), CreateInput{CreateRequest: req.Booking(), Origin: OriginAdmin})
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(b)
	})

	r.Delete("/", func(c *fiber.Ctx) error {
		var req CancelRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		b, err := svc.CancelBooking(c.UserContext(), req.BookingID)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"success": true, "booking": b})
	})

	r.Patch("/:id/status", func(c *fiber.Ctx) error {
		var req StatusRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		b, err := svc.UpdateStatus(c.UserContext(), c.Params("id"), req.Status)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(b)
	})
}
