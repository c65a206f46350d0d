package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iho/orgledger/internal/app"
	"github.com/iho/orgledger/internal/infrastructure/config"
	"github.com/iho/orgledger/internal/infrastructure/logger"
	"github.com/iho/orgledger/internal/infrastructure/postgres"
	"github.com/iho/orgledger/internal/infrastructure/redis"
	"github.com/iho/orgledger/internal/jobs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "ledger-worker"})
	zerolog.DefaultContextLogger = &log.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("ledger-worker failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	redisOpts, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return err
	}

	c := app.NewContainer(pool, redisClient, cfg, nil)

	closeMonth := jobs.NewCloseMonthJob(c.Closing, log.Logger)
	depreciationBatch := jobs.NewDepreciationBatchJob(c.Depreciation, log.Logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      log.Logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCloseMonth, Handler: closeMonth.Handle},
			{Type: jobs.TaskDepreciationBatch, Handler: depreciationBatch.Handle},
		},
	})
	if err != nil {
		return err
	}

	return worker.Run(ctx)
}
