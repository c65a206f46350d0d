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

// MonthCloser is the part of the closing use case the worker needs.
type MonthCloser interface {
	CloseMonth(ctx context.Context, input usecase.CloseMonthInput) (*domain.PeriodClosing, error)
}

// CloseMonthJob handles TaskCloseMonth.
type CloseMonthJob struct {
	closer MonthCloser
	logger zerolog.Logger
}

// NewCloseMonthJob constructs the job handler.
func NewCloseMonthJob(closer MonthCloser, logger zerolog.Logger) *CloseMonthJob {
	return &CloseMonthJob{
		closer: closer,
		logger: logger.With().Str("job", TaskCloseMonth).Logger(),
	}
}

// Handle executes the month close.
func (j *CloseMonthJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload CloseMonthPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	input, err := payload.input()
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log := j.logger.With().
		Str("scope_id", payload.ScopeID).
		Str("financial_year_id", payload.FinancialYearID).
		Str("closing_date", payload.ClosingDate).
		Logger()
	ctx = log.WithContext(ctx)

	c, err := j.closer.CloseMonth(ctx, input)
	switch {
	case errors.Is(err, domain.ErrPeriodAlreadyClosed):
		log.Warn().Msg("period already closed, nothing to do")
		return nil
	case err != nil:
		log.Error().Err(err).Str("category", usecase.ErrorCategory(err)).Msg("close month failed")
		return classify(err)
	}

	log.Info().
		Str("closing_id", c.ID).
		Str("net_surplus", c.NetSurplus.String()).
		Msg("month closed")
	return nil
}

// retryable reports whether running the task again can succeed.
func retryable(err error) bool {
	switch usecase.ErrorCategory(err) {
	case "validation", "not_found", "state", "configuration":
		return false
	default:
		return true
	}
}

func classify(err error) error {
	if retryable(err) {
		return err
	}
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}
