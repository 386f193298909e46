package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/pos-engine/pkg/auth"
)

const (
	LocalStaffID = "staffId"
	LocalRole    = "role"
)

// NewAuthMiddleware accepts HS256 bearer tokens issued for staff terminals.
func NewAuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Unauthorized: missed header")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return unauthorized(c, "Unauthorized: Invalid header format")
		}

		claims, err := auth.ValidateToken(secret, parts[1])
		if err != nil {
			return unauthorized(c, "Unauthorized: Invalid token")
		}

		c.Locals(LocalStaffID, claims.StaffID)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
		"code":  "UNAUTHORIZED",
	})
}
