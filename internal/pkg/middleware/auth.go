package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tubtip/tubtip/internal/pkg/apperror"
	icuser "github.com/tubtip/tubtip/internal/pkg/usercontext"
)

// RequireAuth rejects requests without a valid access token with 401.
// It expects UserContextMiddleware to have run.
func RequireAuth(c *fiber.Ctx) error {
	if !icuser.IsLoggedIn(c) {
		return apperror.Unauthorized("")
	}
	return c.Next()
}
