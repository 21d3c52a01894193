package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/airtable-forms/internal/services"
	"github.com/localnerve/airtable-forms/internal/types"
)

const (
	localUserID = "userID"
	localClaims = "claims"
)

// RequireAuth validates the session token from the app_token cookie or a
// Bearer Authorization header. Failures never say why.
func RequireAuth(signer *services.SessionSigner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := SessionToken(c)
		if token == "" {
			return types.NewAuthError("Unauthorized")
		}

		claims, err := signer.Verify(token)
		if err != nil {
			return types.NewAuthError("Unauthorized")
		}

		c.Locals(localUserID, claims.Subject)
		c.Locals(localClaims, claims)

		return c.Next()
	}
}

// SessionToken returns the raw session token of the request, cookie first
func SessionToken(c *fiber.Ctx) string {
	if token := c.Cookies(services.SessionCookie); token != "" {
		return token
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// UserID returns the authenticated user id set by RequireAuth
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// Claims returns the session claims set by RequireAuth
func Claims(c *fiber.Ctx) *services.SessionClaims {
	claims, _ := c.Locals(localClaims).(*services.SessionClaims)
	return claims
}
