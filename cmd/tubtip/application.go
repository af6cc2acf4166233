package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tubtip/tubtip/app/controllers"
	"github.com/tubtip/tubtip/app/repository"
	apiv1 "github.com/tubtip/tubtip/internal/api/v1"
	"github.com/tubtip/tubtip/internal/pkg/account"
	"github.com/tubtip/tubtip/internal/pkg/auth"
	"github.com/tubtip/tubtip/internal/pkg/billing"
	"github.com/tubtip/tubtip/internal/pkg/cache"
	"github.com/tubtip/tubtip/internal/pkg/config"
	"github.com/tubtip/tubtip/internal/pkg/database"
	"github.com/tubtip/tubtip/internal/pkg/jobqueue"
	"github.com/tubtip/tubtip/internal/pkg/logger"
	"github.com/tubtip/tubtip/internal/pkg/mail"
	"github.com/tubtip/tubtip/internal/pkg/oauth"
	"github.com/tubtip/tubtip/internal/pkg/profile"
	"github.com/tubtip/tubtip/internal/pkg/router"
	"github.com/tubtip/tubtip/internal/pkg/storage"
)

// Application is the wired server process.
type Application struct {
	App   *fiber.App
	Queue *jobqueue.Queue
	DB    *gorm.DB
	Redis *redis.Client
}

// NewApplication connects the backing services and builds the HTTP app.
func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	redisClient := cache.NewClient(cfg.Cache)
	_ = cache.Ping(ctx, redisClient)

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	repos := repository.NewFactory(db).GetRepositories()
	issuer := auth.NewTokenIssuer(cfg.JWT)
	queue := newQueue(redisClient, cfg)
	gateway := billing.NewStripeGateway(cfg.Stripe.SecretKey)

	oauth.Setup(cfg, cache.NewStorage(cfg.Cache, cache.SessionDB))

	ctrl := controllers.New(controllers.Controller{
		Accounts:    account.NewService(repos.Account, issuer),
		Profiles:    profile.NewService(repos.Profile, repos.Tip, store),
		Billing:     billing.NewService(repos, gateway, queue, cfg.Stripe, cfg.App.FrontendURL),
		Genres:      repos.Genre,
		Cookies:     auth.NewCookieWriter(cfg.Cookie, issuer),
		Stripe:      cfg.Stripe,
		FrontendURL: cfg.App.FrontendURL,
		Checks: map[string]controllers.HealthCheck{
			"database": func(context.Context) error { return database.Ping(db) },
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	assets, _ := store.(*storage.MemoryStore)
	app := router.NewApp(router.Deps{
		Config:         cfg,
		Controller:     ctrl,
		Issuer:         issuer,
		LimiterStorage: cache.NewStorage(cfg.Cache, cache.LimiterDB),
		Docs:           apiDocs(ctx),
		Assets:         assets,
	})
	return &Application{App: app, Queue: queue, DB: db, Redis: redisClient}, nil
}

// newObjectStore uses S3 when a bucket is configured and an in-process
// store otherwise.
func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	log := logger.WithComponent("storage")
	if !cfg.S3.Enabled() {
		log.Warn().Msg("no S3 bucket configured, assets are kept in memory")
		return storage.NewMemoryStore(cfg.App.PublicURL + "/assets"), nil
	}
	s3, err := storage.NewS3Store(ctx, cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	if err := s3.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("bucket", cfg.S3.Bucket).Msg("bucket not reachable")
	}
	return s3, nil
}

// apiDocs returns the OpenAPI document, or nil when it does not validate.
func apiDocs(ctx context.Context) []byte {
	if _, err := apiv1.Load(ctx); err != nil {
		log := logger.WithComponent("router")
		log.Warn().Err(err).Msg("openapi document rejected, docs disabled")
		return nil
	}
	return apiv1.Document()
}

func newQueue(client *redis.Client, cfg *config.Config) *jobqueue.Queue {
	queue := jobqueue.NewQueue(client, jobqueue.Options{Workers: cfg.Queue.Workers})
	queue.Register(jobqueue.JobTypeSendEmail, jobqueue.NewEmailProcessor(mail.New(cfg.Mail)))
	return queue
}

func (a *Application) Close() {
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.Redis.Close()
}
