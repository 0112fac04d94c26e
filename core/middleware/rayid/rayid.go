package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// Header is the response header exposing the ray id.
	Header = "X-Ray-ID"
	// LocalKey is the fiber locals key holding the ray id.
	LocalKey = "ray_id"
)

// New returns a middleware tagging each request with a ray id.
// A valid id supplied by the client in Header is kept.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(Header)
		if _, err := uuid.Parse(rid); err != nil {
			rid = uuid.NewString()
		}
		c.Locals(LocalKey, rid)
		c.Set(Header, rid)
		return c.Next()
	}
}

// Get returns the ray id of the request, or an empty string.
func Get(c *fiber.Ctx) string {
	rid, _ := c.Locals(LocalKey).(string)
	return rid
}
