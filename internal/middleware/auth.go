package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/clipforge/api/pkg/response"
)

// AuthMiddleware checks requests against a static API key list. With no
// keys configured the API is open, which is the default for local use.
type AuthMiddleware struct {
	keys []string
}

func NewAuthMiddleware(keys []string) *AuthMiddleware {
	return &AuthMiddleware{keys: keys}
}

// Authenticate accepts the key from X-API-Key or a bearer Authorization
// header.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(m.keys) == 0 {
			return c.Next()
		}

		key := c.Get("X-API-Key")
		if key == "" {
			authHeader := c.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				key = parts[1]
			}
		}
		if key == "" {
			return response.Unauthorized(c, "Missing API key")
		}

		for _, k := range m.keys {
			if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
				return c.Next()
			}
		}
		return response.Unauthorized(c, "Invalid API key")
	}
}
