package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Chicken/VenaaRauhassa/internal/metrics"
)

// AnalyticsMiddleware records every request in the HTTP metrics
func AnalyticsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		responseTime := time.Since(start)
		m.ObserveHTTP(c.Method(), routePattern(c), responseStatus(c, err), responseTime)

		c.Set("X-Response-Time", responseTime.String())

		return err
	}
}

// routePattern keeps label cardinality bounded by using the registered
// path ("/v2/trains/:date/:train") rather than the raw URL
func routePattern(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "/" {
		return route.Path
	}
	return "unmatched"
}

// responseStatus resolves the status the error handler is about to write
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
