package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/accessibility-reports/internal/pkg/errors"
	"github.com/accessibility-reports/internal/pkg/utils"
)

// ErrTooManyRequests - превышен лимит запросов с одного адреса
var ErrTooManyRequests = errors.New("TOO_MANY_REQUESTS", "Too many requests, please try again later", fiber.StatusTooManyRequests)

// RateLimit - ограничение числа запросов с одного IP за окно window
func RateLimit(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, ErrTooManyRequests)
		},
	})
}
