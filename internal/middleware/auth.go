package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// MetricsAuth guards the metrics endpoint with a static bearer token.
// With an empty secret every request is rejected.
func MetricsAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")

		parts := strings.SplitN(authHeader, " ", 2)
		if secret == "" || len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return unauthorized(c)
		}

		token := strings.TrimSpace(parts[1])
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return unauthorized(c)
		}

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": "Authorization header must be in format: Bearer METRICS_SECRET",
	})
}
