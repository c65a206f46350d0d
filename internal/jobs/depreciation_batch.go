package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/usecase"
)

// Depreciator is the part of the depreciation use case the worker needs.
type Depreciator interface {
	CalculateBatch(ctx context.Context, input usecase.BatchInput) ([]usecase.BatchResult, error)
	Post(ctx context.Context, scheduleID, actor string) (*domain.DepreciationSchedule, error)
}

// DepreciationBatchJob handles TaskDepreciationBatch.
type DepreciationBatchJob struct {
	depreciation Depreciator
	logger       zerolog.Logger
}

// NewDepreciationBatchJob constructs the job handler.
func NewDepreciationBatchJob(depreciation Depreciator, logger zerolog.Logger) *DepreciationBatchJob {
	return &DepreciationBatchJob{
		depreciation: depreciation,
		logger:       logger.With().Str("job", TaskDepreciationBatch).Logger(),
	}
}

// Handle calculates, and with AutoPost posts, one period for every asset in the payload.
// Assets already calculated for the period are skipped so a retried task
// only redoes what failed.
func (j *DepreciationBatchJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload DepreciationBatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	input, err := payload.input()
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log := j.logger.With().Str("period", payload.Period).Logger()
	ctx = log.WithContext(ctx)

	results, err := j.depreciation.CalculateBatch(ctx, input)
	if err != nil {
		return err
	}

	var calculated, posted, skipped, failed int
	var retryErr error
	for _, r := range results {
		switch {
		case errors.Is(r.Err, domain.ErrDuplicatePeriod):
			skipped++
			continue
		case r.Err != nil:
			failed++
			log.Warn().Err(r.Err).Str("asset_id", r.AssetID).Msg("depreciation not calculated")
			if retryable(r.Err) {
				retryErr = errors.Join(retryErr, r.Err)
			}
			continue
		}
		calculated++

		if !payload.AutoPost {
			continue
		}
		if _, err := j.depreciation.Post(ctx, r.Schedule.ID, payload.Actor); err != nil {
			failed++
			log.Warn().Err(err).
				Str("asset_id", r.AssetID).
				Str("schedule_id", r.Schedule.ID).
				Msg("depreciation not posted")
			if retryable(err) {
				retryErr = errors.Join(retryErr, err)
			}
			continue
		}
		posted++
	}

	log.Info().
		Int("assets", len(results)).
		Int("calculated", calculated).
		Int("posted", posted).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("depreciation batch done")

	return retryErr
}
