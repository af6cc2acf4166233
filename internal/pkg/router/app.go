package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tubtip/tubtip/internal/pkg/apperror"
)

// NewApp builds the fiber application with recovery, access logging, the
// error envelope and every route installed.
func NewApp(deps Deps) *fiber.App {
	cfg := deps.Config
	app := fiber.New(fiber.Config{
		AppName:      "tubtip",
		BodyLimit:    cfg.App.BodyLimit,
		ErrorHandler: apperror.ErrorHandler(cfg.App.IsDev()),
	})

	// recovery and logging
	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.App.IsDev()}), logger.New())

	InstallRouter(app, deps)
	return app
}
