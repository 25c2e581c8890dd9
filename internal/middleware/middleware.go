package middleware

import (
	"runtime/debug"

	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"

	"github.com/gofiber/fiber/v3"
)

// ConnectionLimiter bounds concurrent in-flight requests.
type ConnectionLimiter struct {
	limit    int
	waitlist chan struct{}
}

func NewConnectionLimiter(limit int) *ConnectionLimiter {
	return &ConnectionLimiter{
		limit:    limit,
		waitlist: make(chan struct{}, limit),
	}
}

func (cl *ConnectionLimiter) Acquire() bool {
	select {
	case cl.waitlist <- struct{}{}:
		return true
	default:
		return false
	}
}

func (cl *ConnectionLimiter) Release() {
	select {
	case <-cl.waitlist:
	default:
	}
}

// ConnectionLimit rejects requests beyond the concurrency cap.
func ConnectionLimit(limiter *ConnectionLimiter) fiber.Handler {
	return func(c fiber.Ctx) error {
		if !limiter.Acquire() {
			return c.Status(fiber.StatusServiceUnavailable).SendString("Sunucu şu anda çok yoğun, lütfen tekrar deneyin")
		}
		defer limiter.Release()
		return c.Next()
	}
}

// PanicRecovery converts handler panics into logged 500 responses.
func PanicRecovery() fiber.Handler {
	return func(c fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.WithFields(map[string]interface{}{
					"panic":      r,
					"method":     c.Method(),
					"path":       c.Path(),
					"ip":         c.IP(),
					"user_agent": c.Get("User-Agent"),
					"stack":      string(stack),
				}).Errorf("Panic recovered")

				err := c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Internal Server Error",
					"message": "Beklenmeyen bir hata oluştu",
				})
				if err != nil {
					logger.WithField("error", err).Errorf("Failed to send error response")
				}
			}
		}()
		return c.Next()
	}
}
