package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/iho/orgledger/internal/domain"
)

// TaskHandler binds a task type to its handler.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisConnOpt
	Logger      zerolog.Logger
	Concurrency int
	Handlers    []TaskHandler
}

// Worker wraps the asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger zerolog.Logger
}

// NewWorker constructs a Worker.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.RedisOpts == nil {
		return nil, errors.New("worker: redis options are required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueLedger: 1,
		},
		Logger: NewLogger(cfg.Logger),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			cfg.Logger.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})

	return &Worker{server: srv, mux: mux, logger: cfg.Logger}, nil
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	w.logger.Info().Msg("worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.logger.Info().Msg("worker stopped")
	return ctx.Err()
}

// Client submits ledger tasks to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs a Client.
func NewClient(redisOpts asynq.RedisConnOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueCloseMonth queues a month close. A close already queued for the same
// scope and date yields domain.ErrClosingInProgress.
func (c *Client) EnqueueCloseMonth(ctx context.Context, p CloseMonthPayload) (*asynq.TaskInfo, error) {
	task, err := NewCloseMonthTask(p)
	if err != nil {
		return nil, err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil, domain.ErrClosingInProgress
	}
	return info, err
}

// EnqueueDepreciationBatch queues a depreciation batch.
func (c *Client) EnqueueDepreciationBatch(ctx context.Context, p DepreciationBatchPayload) (*asynq.TaskInfo, error) {
	task, err := NewDepreciationBatchTask(p)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
