package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/payphone/payphone/internal/auth"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	Verify(accessToken string) (auth.Claims, error)
}

// UserChecker reports whether a token subject is still a live account.
type UserChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// JWTAuth validates the bearer access token and stores the caller in
// Locals("user_id") and Locals("username"). Tokens of deleted users are
// refused. A nil users skips that check.
func JWTAuth(tokens TokenVerifier, users UserChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.Verify(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		if users != nil {
			ok, err := users.Exists(c.UserContext(), claims.Subject)
			if err != nil {
				return fiber.NewError(http.StatusServiceUnavailable, "user lookup failed")
			}
			if !ok {
				return fiber.NewError(http.StatusUnauthorized, "user not found")
			}
		}
		c.Locals("user_id", claims.Subject)
		c.Locals("username", claims.Username)
		return c.Next()
	}
}
