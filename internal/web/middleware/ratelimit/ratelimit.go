// Package ratelimit adapts the token-bucket limiter to a fiber middleware.
package ratelimit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/go-secadmin/go-secadmin/internal/ratelimit"
)

// New returns a middleware that rejects clients exceeding their bucket with
// 429 and standard rate-limit headers. Buckets are keyed per client IP and
// route so one hammered endpoint does not lock a client out elsewhere.
func New(limiter *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP() + ":" + c.Path()

		if !limiter.Allow(key) {
			c.Set(fiber.HeaderRetryAfter, "1")

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Tokens(key)))

		return c.Next()
	}
}
