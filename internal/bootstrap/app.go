// Package bootstrap assembles the process-wide dependencies shared by the
// Orders, Payments and Gateway binaries: config, logging, tracing, metrics,
// the database pool and the Redis client. Each binary builds its own
// repositories, services and router on top of the returned App.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/orderflow/platform/internal/config"
	"github.com/orderflow/platform/internal/observability"
	"github.com/orderflow/platform/internal/redisclient"
	"github.com/orderflow/platform/internal/repository/postgres"
)

type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
	tracer  *sdktrace.TracerProvider
}

func New(ctx context.Context, envPrefix, serviceName, metricsNamespace string) (*App, error) {
	cfg, err := config.Load(envPrefix)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info().Str("service", serviceName).Msg("starting")

	var tp *sdktrace.TracerProvider
	if cfg.Observability.EnableTracing {
		tp, err = observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize tracer, continuing without tracing")
		} else {
			logger.Info().Msg("tracing enabled")
		}
	}

	metrics := observability.NewMetrics(metricsNamespace, nil)
	logger.Info().Msg("metrics initialized")

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("connected to postgresql")

	redisClient, err := redisclient.New(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Msg("connected to redis")

	return &App{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Redis:   redisClient,
		Metrics: metrics,
		tracer:  tp,
	}, nil
}

// Close releases every resource acquired by New, in reverse order.
func (a *App) Close() {
	if a.tracer != nil {
		observability.Shutdown(context.Background(), a.tracer)
	}
	a.Redis.Close()
	a.Pool.Close()
}
