package middleware

import (
	"hodhod-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// Principal is the authenticated caller every mutating auction operation
// requires.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

// GetPrincipal extracts the authenticated principal from the session user.
// Returns false if not logged in or the session user is malformed.
func GetPrincipal(c *fiber.Ctx) (Principal, bool) {
	m, ok := c.Locals(userLocal).(map[string]interface{})
	if !ok {
		return Principal{}, false
	}
	idStr, _ := m["user_id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return Principal{}, false
	}
	role, _ := m["role"].(string)
	return Principal{UserID: id, Role: role}, true
}
