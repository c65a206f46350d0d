package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/orgledger/internal/adapter/http"
	"github.com/iho/orgledger/internal/adapter/http/handler"
	redisRepo "github.com/iho/orgledger/internal/adapter/repository/redis"
	"github.com/iho/orgledger/internal/app"
	"github.com/iho/orgledger/internal/infrastructure/config"
	"github.com/iho/orgledger/internal/infrastructure/eventpublisher"
	"github.com/iho/orgledger/internal/infrastructure/logger"
	"github.com/iho/orgledger/internal/infrastructure/metrics"
	"github.com/iho/orgledger/internal/infrastructure/postgres"
	"github.com/iho/orgledger/internal/infrastructure/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "ledgerd"})
	zerolog.DefaultContextLogger = &log.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("ledgerd failed")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log.Logger); err != nil {
			return err
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	c := app.NewContainer(pool, redisClient, cfg, m)

	relay := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: c.Outbox,
		Publisher:  redisRepo.NewPublisher(redisClient, cfg.EventChannel),
		Metrics:    m,
		Logger:     log.Logger,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})
	relayDone := make(chan error, 1)
	go func() {
		relayDone <- relay.Start(ctx)
	}()

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		HealthHandler: handler.NewHealthHandler(
			handler.Check{Name: "postgres", Ping: pool.Ping},
			handler.Check{Name: "redis", Ping: redisPing(redisClient)},
		),
		Metrics: m,
		Logger:  log.Logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := <-relayDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func redisPing(client *goredis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
