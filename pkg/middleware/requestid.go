package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
)

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Locals(requestIDKey, id)
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}

// GetRequestID returns the ID assigned by RequestID, or "".
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
