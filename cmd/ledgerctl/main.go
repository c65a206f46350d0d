package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iho/orgledger/internal/app"
	"github.com/iho/orgledger/internal/infrastructure/config"
	"github.com/iho/orgledger/internal/infrastructure/logger"
	"github.com/iho/orgledger/internal/infrastructure/postgres"
	"github.com/iho/orgledger/internal/infrastructure/redis"
)

// cli carries state shared by every command.
type cli struct {
	cfg   *config.Config
	out   io.Writer
	actor string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operator tool for the accounting ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			c.cfg = cfg

			log.Logger = logger.New(logger.Config{
				Output:  os.Stderr,
				Level:   cfg.LogLevel,
				Format:  "console",
				Service: "ledgerctl",
			})
			cmd.SetContext(log.Logger.WithContext(cmd.Context()))
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.actor, "actor", envOr("USER", "ledgerctl"), "User recorded as the author of changes")

	root.AddCommand(
		c.migrateCmd(),
		c.ledgerCmd(),
		c.reportCmd(),
		c.closeCmd(),
		c.depreciationCmd(),
		c.mappingCmd(),
		c.yearCmd(),
	)

	return root
}

// session is an open database connection with the use cases built on it.
type session struct {
	*app.Container

	pool  *pgxpool.Pool
	redis *goredis.Client
}

func (s *session) Close() {
	if s.redis != nil {
		s.redis.Close()
	}
	s.pool.Close()
}

// connect opens Postgres and, when reachable, Redis for the closing lock.
func (c *cli) connect(ctx context.Context) (*session, error) {
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    c.cfg.DatabaseURL,
		MaxConns:       4,
		ConnectTimeout: c.cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, err
	}

	s := &session{pool: pool}
	if client, err := redis.NewClient(ctx, c.cfg.RedisURL); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("redis unavailable, closing without cross-process lock")
	} else {
		s.redis = client
	}

	s.Container = app.NewContainer(pool, s.redis, c.cfg, nil)
	return s, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
