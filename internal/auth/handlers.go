package auth

import (
	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/register", func(c *fiber.Ctx) error {
		var req RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		user, tokens, err := svc.Register(c.UserContext(), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user, "tokens": tokens})
	})

	r.Post("/login", func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "email and password required")
		}
		user, resp, err := svc.Login(c.UserContext(), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"user": user, "tokens": resp})
	})

	r.Post("/refresh", func(c *fiber.Ctx) error {
		var req RefreshRequest
		if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
			return fiber.NewError(fiber.StatusBadRequest, "refresh_token required")
		}

		claims, err := svc.ValidateRefreshToken(c.UserContext(), req.RefreshToken)
		if err != nil {
			return apperr.Fiber(err)
		}

		resp, err := svc.GenerateTokens(c.UserContext(), claims.UserID, claims.Role)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(resp)
	})

	r.Get("/jwt/verify", func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := svc.ValidateAccessToken(token)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"user_id": claims.UserID, "role": claims.Role})
	})

	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		user, err := svc.Get(c.UserContext(), UserID(c))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(user)
	})

	r.Post("/profile", authMiddleware, func(c *fiber.Ctx) error {
		var req ProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		user, err := svc.SyncProfile(c.UserContext(), UserID(c), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"success": true, "user": user})
	})
}

// RegisterAdminRoutes mounts user lookup on a router already guarded by
// JWTMiddleware and RequireRole(RoleAdmin).
func RegisterAdminRoutes(r fiber.Router, svc *Service) {
	r.Get("/users/search", func(c *fiber.Ctx) error {
		users, err := svc.Search(c.UserContext(), c.Query("query"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(users)
	})
}
