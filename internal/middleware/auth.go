package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware guards the API with a static bearer token.
type AuthMiddleware struct {
	token string
}

// NewAuthMiddleware creates a new auth middleware instance. An empty token
// disables the check.
func NewAuthMiddleware(token string) *AuthMiddleware {
	return &AuthMiddleware{token: token}
}

// Enabled reports whether requests are checked at all.
func (m *AuthMiddleware) Enabled() bool {
	return m.token != ""
}

// RequireToken rejects requests without the configured bearer token.
func (m *AuthMiddleware) RequireToken(c fiber.Ctx) error {
	if !m.Enabled() {
		return c.Next()
	}

	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return unauthorized(c, "missing bearer token")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
		return unauthorized(c, "invalid bearer token")
	}

	return c.Next()
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c fiber.Ctx, message string) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="looklike"`)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}
