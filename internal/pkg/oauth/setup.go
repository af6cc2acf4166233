package oauth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/tubtip/tubtip/internal/pkg/config"
	"github.com/tubtip/tubtip/internal/pkg/logger"
)

const ProviderGoogle = "google"

// CallbackURL is the provider redirect target under the API prefix.
func CallbackURL(publicURL, provider string) string {
	return strings.TrimRight(publicURL, "/") + "/api/v1/auth/" + provider + "/callback"
}

// Setup registers the configured identity providers and binds the OAuth
// state session to storage. It reports whether any provider is enabled.
func Setup(cfg *config.Config, storage fiber.Storage) bool {
	log := logger.WithComponent("oauth")
	if !cfg.OAuth.GoogleEnabled() {
		log.Info().Msg("google login disabled, no client credentials")
		return false
	}

	goth.UseProviders(
		google.New(
			cfg.OAuth.GoogleKey,
			cfg.OAuth.GoogleSecret,
			CallbackURL(cfg.App.PublicURL, ProviderGoogle),
			"email", "profile",
		),
	)

	sessionCfg := session.Config{
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   cfg.Cookie.Secure,
		Expiration:     time.Hour,
	}
	if storage != nil {
		sessionCfg.Storage = storage
	}
	gothfiber.SessionStore = session.New(sessionCfg)
	log.Info().Str("provider", ProviderGoogle).Msg("oauth provider registered")
	return true
}

// Enabled reports whether provider has been registered.
func Enabled(provider string) bool {
	_, err := goth.GetProvider(provider)
	return err == nil
}
