package middleware

import (
	"github.com/gofiber/fiber/v2"

	"edushare/internal/domain"
)

// RequestInfo stores the caller's address and user agent on the request
// context so audit entries can record them.
func RequestInfo() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(domain.WithRequestMeta(c.UserContext(), domain.RequestMeta{
			IPAddress: c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		}))
		return c.Next()
	}
}
