package controllers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tubtip/tubtip/app/repository"
	"github.com/tubtip/tubtip/internal/pkg/account"
	"github.com/tubtip/tubtip/internal/pkg/auth"
	"github.com/tubtip/tubtip/internal/pkg/billing"
	"github.com/tubtip/tubtip/internal/pkg/config"
	"github.com/tubtip/tubtip/internal/pkg/logger"
	"github.com/tubtip/tubtip/internal/pkg/profile"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Controller holds the services behind the HTTP handlers.
type Controller struct {
	Accounts *account.Service
	Profiles *profile.Service
	Billing  *billing.Service
	Genres   repository.GenreRepository
	Cookies  *auth.CookieWriter
	Stripe   config.StripeConfig
	Checks   map[string]HealthCheck
	// FrontendURL receives the browser after a federated login.
	FrontendURL string

	log zerolog.Logger
}

func New(c Controller) *Controller {
	c.log = logger.WithComponent("http")
	return &c
}
