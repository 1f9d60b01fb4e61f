package middleware

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig configures the per-IP limiter
type RateLimitConfig struct {
	// PerMinute is the number of requests one address may make per minute.
	// Zero or less disables limiting.
	PerMinute int
	Now       func() time.Time
}

// RateLimitMiddleware counts requests per client IP in fixed one-minute
// windows stored in Redis. Redis failures let the request through.
func RateLimitMiddleware(rdb redis.Cmdable, config RateLimitConfig) fiber.Handler {
	if config.Now == nil {
		config.Now = time.Now
	}

	return func(c *fiber.Ctx) error {
		if config.PerMinute <= 0 {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		now := config.Now()
		key := rateLimitKey(c.IP(), now)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("Rate limiter unavailable: %v", err)
			return c.Next()
		}
		if count == 1 {
			rdb.Expire(ctx, key, 2*time.Minute)
		}

		reset := now.Truncate(time.Minute).Add(time.Minute)
		remaining := int64(config.PerMinute) - count
		if remaining < 0 {
			remaining = 0
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(config.PerMinute))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if count > int64(config.PerMinute) {
			retryAfter := int64(reset.Sub(now).Seconds()) + 1
			c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests per minute",
				"limit":       config.PerMinute,
				"retry_after": retryAfter,
			})
		}

		return c.Next()
	}
}

func rateLimitKey(ip string, now time.Time) string {
	return fmt.Sprintf("rl:ip:%s:minute:%s", ip, now.UTC().Format("2006-01-02T15:04"))
}
