package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/tubtip/tubtip/app/controllers"
	"github.com/tubtip/tubtip/internal/pkg/middleware"
)

const (
	requestsPerMinute = 120
	webhookPrefix     = "/api/v1/stripe/webhook"
)

type ApiRouter struct {
	deps Deps
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (r ApiRouter) InstallRouter(app *fiber.App) {
	h := r.deps.Controller
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:          requestsPerMinute,
		Expiration:   time.Minute,
		KeyGenerator: controllers.ClientIP,
		Storage:      r.deps.LimiterStorage,
		// processor retries must never be throttled away
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), webhookPrefix)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.ErrTooManyRequests
		},
	}))
	v1 := api.Group("/v1")

	v1.Get("/health/status", h.HandleHealth)

	authGroup := v1.Group("/auth")
	authGroup.Post("/login", h.HandleLogin)
	authGroup.Post("/refresh", h.HandleRefresh)
	authGroup.Post("/logout", h.HandleLogout)
	authGroup.Get("/:provider", h.HandleOAuthBegin)
	authGroup.Get("/:provider/callback", h.HandleOAuthCallback)

	creator := v1.Group("/creator")
	creator.Post("/create", h.HandleRegister)
	creator.Get("/me", middleware.RequireAuth, h.HandleMe)
	creator.Post("/profile/create", middleware.RequireAuth, h.HandleCreateProfile)
	creator.Patch("/profile", middleware.RequireAuth, h.HandleUpdateProfile)
	creator.Get("/profile/username/:username", h.HandleGetProfileByUsername)

	v1.Get("/tips/:profile_id", h.HandleListTips)

	stripeGroup := v1.Group("/stripe")
	stripeGroup.Post("/connect", middleware.RequireAuth, h.HandleConnect)
	stripeGroup.Get("/connect/callback", middleware.RequireAuth, h.HandleConnectCallback)
	stripeGroup.Post("/checkout", h.HandleCheckout)
	stripeGroup.Post("/webhook/checkout", h.HandleCheckoutWebhook)
	stripeGroup.Post("/webhook/connect", h.HandleConnectWebhook)

	genres := v1.Group("/genres")
	genres.Post("/", h.HandleCreateGenre)
	genres.Get("/", h.HandleListGenres)
	genres.Get("/:id", h.HandleGetGenre)
	genres.Put("/:id", h.HandleUpdateGenre)
	genres.Delete("/:id", h.HandleDeleteGenre)
}
