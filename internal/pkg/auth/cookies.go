package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tubtip/tubtip/internal/pkg/config"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// CookieWriter sets and clears the session cookie pair.
type CookieWriter struct {
	cfg        config.CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCookieWriter(cfg config.CookieConfig, issuer *TokenIssuer) *CookieWriter {
	return &CookieWriter{cfg: cfg, accessTTL: issuer.AccessTTL(), refreshTTL: issuer.RefreshTTL()}
}

// SetSession writes both tokens as http-only SameSite=Lax cookies whose
// max-age matches the token lifetimes.
func (w *CookieWriter) SetSession(c *fiber.Ctx, accessToken, refreshToken string) {
	c.Cookie(w.cookie(AccessCookieName, accessToken, w.accessTTL))
	c.Cookie(w.cookie(RefreshCookieName, refreshToken, w.refreshTTL))
}

// ClearSession expires both cookies.
func (w *CookieWriter) ClearSession(c *fiber.Ctx) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		ck := w.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		c.Cookie(ck)
	}
}

func (w *CookieWriter) cookie(name, value string, ttl time.Duration) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   w.cfg.Domain,
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		Secure:   w.cfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
