package cache

import (
	"context"
	"strconv"
	"time"

	redisstorage "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"

	"github.com/tubtip/tubtip/internal/pkg/config"
	"github.com/tubtip/tubtip/internal/pkg/logger"
)

// Logical databases on the shared Redis server. The job queue uses the
// configured DB; fiber storages get their own.
const (
	LimiterDB = 1
	SessionDB = 2
)

// NewClient builds the Redis client used by the job queue.
func NewClient(cfg config.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks the connection and logs the outcome.
func Ping(ctx context.Context, client *redis.Client) error {
	log := logger.WithComponent("cache")
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warn().Err(err).Str("addr", client.Options().Addr).Msg("could not connect to redis")
		return err
	}
	log.Info().Str("addr", client.Options().Addr).Str("reply", pong).Msg("connected to redis")
	return nil
}

// NewStorage returns a fiber storage on the given logical database, used
// for the rate limiter and the OAuth state session.
func NewStorage(cfg config.CacheConfig, db int) *redisstorage.Storage {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		port = 6379
	}
	return redisstorage.New(redisstorage.Config{
		Host:     cfg.Host,
		Port:     port,
		Password: cfg.Password,
		Database: db,
		Reset:    false,
	})
}
