package router

import (
	"strings"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/tubtip/tubtip/internal/pkg/metrics"
	"github.com/tubtip/tubtip/internal/pkg/middleware"
	"github.com/tubtip/tubtip/internal/pkg/storage"
)

// HttpRouter installs the global middleware and the operational routes
// outside the API prefix.
type HttpRouter struct {
	deps Deps
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{deps: deps}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	cfg := h.deps.Config

	app.Use(cors.New(corsConfig(cfg.CORS.AllowOrigins)))
	app.Use(metrics.Middleware)
	app.Use(middleware.UserContextMiddleware(h.deps.Issuer))

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if cfg.Monitor.Password != "" {
		app.Get("/monitor", basicauth.New(basicauth.Config{
			Users: map[string]string{cfg.Monitor.User: cfg.Monitor.Password},
		}), monitor.New(monitor.Config{Title: "TubTip Monitor"}))
	}

	if h.deps.Assets != nil {
		app.Get("/assets/*", serveMemoryAsset(h.deps.Assets))
	}

	if len(h.deps.Docs) > 0 {
		app.Use(swagger.New(swagger.Config{
			BasePath:    "/docs/api/",
			FilePath:    "openapi.yml",
			FileContent: h.deps.Docs,
			Path:        "v1",
			Title:       "TubTip API",
		}))
	}
}

// corsConfig allows credentials only for an explicit origin list.
func corsConfig(origins string) cors.Config {
	origins = strings.TrimSpace(origins)
	if origins == "" {
		origins = "*"
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Stripe-Signature",
		AllowCredentials: origins != "*",
	}
}

func serveMemoryAsset(store *storage.MemoryStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		obj, ok := store.Get(c.Params("*"))
		if !ok {
			return fiber.ErrNotFound
		}
		c.Set(fiber.HeaderContentType, obj.ContentType)
		c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
		return c.Send(obj.Body)
	}
}
