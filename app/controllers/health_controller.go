package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HandleHealth reports "ok" when every registered dependency answers.
func (h *Controller) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "ok"
	checks := fiber.Map{}
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			h.log.Warn().Err(err).Str("check", name).Msg("health check failed")
			checks[name] = "unavailable"
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{"status": status, "checks": checks})
}
