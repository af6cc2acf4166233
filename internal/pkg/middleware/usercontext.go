package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tubtip/tubtip/internal/pkg/auth"
	"github.com/tubtip/tubtip/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the access token cookie (or a bearer
// Authorization header) into the request's user context. Requests without
// a valid token continue anonymously.
func UserContextMiddleware(issuer *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.UserContext{}
		if claims, err := issuer.VerifyAccessToken(accessToken(c)); err == nil {
			if id, err := claims.AccountID(); err == nil {
				uc = usercontext.UserContext{AccountID: id, IsLoggedIn: true}
			}
		}
		usercontext.Set(c, uc)
		return c.Next()
	}
}

func accessToken(c *fiber.Ctx) string {
	if token := c.Cookies(auth.AccessCookieName); token != "" {
		return token
	}
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
