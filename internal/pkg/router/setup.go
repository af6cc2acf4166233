package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tubtip/tubtip/app/controllers"
	"github.com/tubtip/tubtip/internal/pkg/auth"
	"github.com/tubtip/tubtip/internal/pkg/config"
	"github.com/tubtip/tubtip/internal/pkg/storage"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps is what the routers need from the application.
type Deps struct {
	Config     *config.Config
	Controller *controllers.Controller
	Issuer     *auth.TokenIssuer
	// LimiterStorage backs the API rate limiter. Nil keeps counters in memory.
	LimiterStorage fiber.Storage
	// Docs is the OpenAPI document served under /docs/api/v1. Empty
	// disables the docs route.
	Docs []byte
	// Assets serves uploads kept in memory when no bucket is configured.
	Assets *storage.MemoryStore
}

func InstallRouter(app *fiber.App, deps Deps) {
	// The HTTP router installs the global user context middleware the API
	// routes depend on, so it goes first.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
