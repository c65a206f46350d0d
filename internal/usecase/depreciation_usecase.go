package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/iho/orgledger/internal/domain"
)

// DepreciationUseCase calculates and posts periodic asset depreciation.
type DepreciationUseCase struct {
	txManager    TransactionManager
	assetRepo    AssetRepository
	scheduleRepo ScheduleRepository
	periodRepo   PeriodRepository
	journal      *JournalUseCase
	mappings     *MappingUseCase
	auditRepo    AuditRepository
	outboxRepo   OutboxRepository
	retrier      Retrier
	idGen        IDGenerator
	metrics      Metrics
	now          func() time.Time
	concurrency  int
}

// NewDepreciationUseCase creates a new DepreciationUseCase.
func NewDepreciationUseCase(
	txManager TransactionManager,
	assetRepo AssetRepository,
	scheduleRepo ScheduleRepository,
	periodRepo PeriodRepository,
	journal *JournalUseCase,
	mappings *MappingUseCase,
	auditRepo AuditRepository,
	outboxRepo OutboxRepository,
	retrier Retrier,
	idGen IDGenerator,
) *DepreciationUseCase {
	return &DepreciationUseCase{
		txManager:    txManager,
		assetRepo:    assetRepo,
		scheduleRepo: scheduleRepo,
		periodRepo:   periodRepo,
		journal:      journal,
		mappings:     mappings,
		auditRepo:    auditRepo,
		outboxRepo:   outboxRepo,
		retrier:      retrier,
		idGen:        idGen,
		metrics:      nopMetrics{},
		now:          defaultNow,
		concurrency:  DefaultBatchConcurrency,
	}
}

// WithNow overrides the clock.
func (uc *DepreciationUseCase) WithNow(now func() time.Time) *DepreciationUseCase {
	uc.now = now
	return uc
}

// WithMetrics attaches a metrics sink.
func (uc *DepreciationUseCase) WithMetrics(m Metrics) *DepreciationUseCase {
	if m != nil {
		uc.metrics = m
	}
	return uc
}

// WithConcurrency bounds CalculateBatch parallelism.
func (uc *DepreciationUseCase) WithConcurrency(n int) *DepreciationUseCase {
	if n > 0 {
		uc.concurrency = n
	}
	return uc
}

// CalculateInput identifies the asset and period to depreciate.
type CalculateInput struct {
	PeriodStart     time.Time `validate:"required"`
	PeriodEnd       time.Time `validate:"required"`
	PeriodYears     *decimal.Decimal // derived from the dates when nil
	UnitsProduced   *decimal.Decimal
	AssetID         string `validate:"required"`
	FinancialYearID string `validate:"required"`
	Period          string `validate:"required,max=32"`
	Actor           string `validate:"required"`
}

// Calculate computes one period's depreciation and stores it as a
// CALCULATED schedule. It has no accounting effect.
func (uc *DepreciationUseCase) Calculate(ctx context.Context, input CalculateInput) (*domain.DepreciationSchedule, error) {
	if err := domain.ValidateStruct(input); err != nil {
		return nil, err
	}
	start, end := domain.DateOnly(input.PeriodStart), domain.DateOnly(input.PeriodEnd)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: period ends before it starts", domain.ErrValidation)
	}

	var schedule *domain.DepreciationSchedule
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		asset, err := uc.assetRepo.GetByID(ctx, tx, input.AssetID)
		if err != nil {
			return err
		}
		if err := asset.CanDepreciate(); err != nil {
			return err
		}
		if _, err := uc.periodRepo.GetYear(ctx, tx, input.FinancialYearID); err != nil {
			return err
		}

		exists, err := uc.scheduleRepo.ExistsForPeriod(ctx, tx, asset.ID, input.FinancialYearID, input.Period, start)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s %s", domain.ErrDuplicatePeriod, asset.Code, input.Period)
		}

		py := domain.PeriodYears(start, end)
		if input.PeriodYears != nil {
			py = *input.PeriodYears
		}
		result, err := domain.ComputeDepreciation(asset.Method, asset.DepreciationInput(py, input.UnitsProduced))
		if err != nil {
			return err
		}

		now := uc.now()
		schedule = &domain.DepreciationSchedule{
			ID:              uc.idGen.Generate(),
			ScopeID:         asset.ScopeID,
			AssetID:         asset.ID,
			FinancialYearID: input.FinancialYearID,
			Period:          input.Period,
			PeriodStart:     start,
			PeriodEnd:       end,
			PeriodYears:     py,
			Method:          asset.Method,
			UnitsProduced:   input.UnitsProduced,
			Status:          domain.ScheduleStatusCalculated,
			CalculatedAt:    now,
		}
		schedule.ApplyResult(result)

		if err := uc.scheduleRepo.Create(ctx, tx, schedule); err != nil {
			return err
		}
		return writeAudit(ctx, uc.auditRepo, tx, now, auditRecord{
			scopeID:      schedule.ScopeID,
			actor:        input.Actor,
			action:       domain.AuditActionDepreciationCalculate,
			resourceType: domain.ResourceSchedule,
			resourceID:   schedule.ID,
			after:        schedule,
		})
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("schedule_id", schedule.ID).
		Str("asset_id", schedule.AssetID).
		Str("method", string(schedule.Method)).
		Str("amount", schedule.DepreciationAmount.StringFixed(2)).
		Msg("depreciation calculated")

	return schedule, nil
}

// Post books a CALCULATED schedule: Dr depreciation expense, Cr the asset
// category's accumulated depreciation. The entry, the asset's running book
// value and the schedule status change commit together.
func (uc *DepreciationUseCase) Post(ctx context.Context, scheduleID, actor string) (*domain.DepreciationSchedule, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}

	var posted *domain.DepreciationSchedule
	err := uc.retry(ctx, func() error {
		return withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
			s, err := uc.scheduleRepo.GetByIDForUpdate(ctx, tx, scheduleID)
			if err != nil {
				return err
			}
			switch s.Status {
			case domain.ScheduleStatusCalculated:
			case domain.ScheduleStatusPosted:
				return fmt.Errorf("%w: %s", domain.ErrScheduleAlreadyPosted, s.ID)
			default:
				return fmt.Errorf("%w: %s is %s", domain.ErrScheduleNotCalculated, s.ID, s.Status)
			}

			asset, err := uc.assetRepo.GetByIDForUpdate(ctx, tx, s.AssetID)
			if err != nil {
				return err
			}
			if !asset.OpeningBookValue().Equal(s.OpeningBookValue) {
				return fmt.Errorf("%w: asset %s book value %s, schedule opened at %s", domain.ErrStaleSchedule,
					asset.Code, asset.OpeningBookValue().StringFixed(2), s.OpeningBookValue.StringFixed(2))
			}

			now := uc.now()
			entryID := ""
			if s.DepreciationAmount.IsPositive() {
				entry, err := uc.postEntry(ctx, tx, s, asset, actor)
				if err != nil {
					return err
				}
				entryID = entry.ID
			}

			asset.ApplySchedule(s, now)
			if err := uc.assetRepo.UpdateBookValue(ctx, tx, asset); err != nil {
				return err
			}
			if err := s.MarkPosted(entryID, actor, now); err != nil {
				return err
			}
			if entryID == "" {
				s.JournalEntryID = nil
			}
			if err := uc.scheduleRepo.UpdateStatus(ctx, tx, s); err != nil {
				return err
			}

			ev := domain.NewOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeSchedule, s.ID,
				domain.EventTypeDepreciationPosted, domain.DepreciationPostedEvent{
					ScheduleID:     s.ID,
					AssetID:        asset.ID,
					JournalEntryID: entryID,
					Amount:         s.DepreciationAmount.StringFixed(2),
					ClosingValue:   s.ClosingBookValue.StringFixed(2),
				}, now)
			if err := writeEvent(ctx, uc.outboxRepo, tx, ev); err != nil {
				return err
			}
			if err := writeAudit(ctx, uc.auditRepo, tx, now, auditRecord{
				scopeID:      s.ScopeID,
				actor:        actor,
				action:       domain.AuditActionDepreciationPost,
				resourceType: domain.ResourceSchedule,
				resourceID:   s.ID,
				before:       domain.ScheduleStatusCalculated,
				after:        s,
			}); err != nil {
				return err
			}

			posted = s
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.DepreciationPosted(string(posted.Method), posted.DepreciationAmount)
	zerolog.Ctx(ctx).Info().
		Str("schedule_id", posted.ID).
		Str("asset_id", posted.AssetID).
		Str("amount", posted.DepreciationAmount.StringFixed(2)).
		Msg("depreciation posted")

	return posted, nil
}

func (uc *DepreciationUseCase) postEntry(ctx context.Context, tx Transaction, s *domain.DepreciationSchedule, asset *domain.Asset, actor string) (*domain.JournalEntry, error) {
	expense, err := uc.mappings.Resolve(ctx, tx, s.ScopeID, domain.MappingDepreciationExpense)
	if err != nil {
		return nil, err
	}
	accumulated, err := uc.mappings.Resolve(ctx, tx, s.ScopeID, domain.AccumulatedDepreciationKey(asset.CategoryCode))
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Depreciation %s %s", asset.Code, s.Period)
	return uc.journal.CreateAndPostTx(ctx, tx, CreateEntryInput{
		EntryDate: s.PeriodEnd,
		ScopeID:   s.ScopeID,
		Narration: desc + " (" + string(s.Method) + ")",
		Prefix:    domain.PrefixDepreciation,
		Actor:     actor,
		Reference: &domain.Reference{Type: ReferenceTypeDepreciation, ID: s.ID},
		Lines: []EntryLineInput{
			{AccountID: expense.ID, Debit: s.DepreciationAmount, Credit: decimal.Zero, Description: desc},
			{AccountID: accumulated.ID, Debit: decimal.Zero, Credit: s.DepreciationAmount, Description: desc},
		},
	}, PostingOptions{})
}

// Cancel discards a CALCULATED schedule so its period can be recalculated.
func (uc *DepreciationUseCase) Cancel(ctx context.Context, scheduleID, actor string) (*domain.DepreciationSchedule, error) {
	var cancelled *domain.DepreciationSchedule
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		s, err := uc.scheduleRepo.GetByIDForUpdate(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		now := uc.now()
		if err := s.Cancel(now); err != nil {
			return err
		}
		if err := uc.scheduleRepo.UpdateStatus(ctx, tx, s); err != nil {
			return err
		}
		if err := writeAudit(ctx, uc.auditRepo, tx, now, auditRecord{
			scopeID:      s.ScopeID,
			actor:        actor,
			action:       domain.AuditActionDepreciationCancel,
			resourceType: domain.ResourceSchedule,
			resourceID:   s.ID,
			before:       domain.ScheduleStatusCalculated,
			after:        s.Status,
		}); err != nil {
			return err
		}
		cancelled = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// GetSchedule retrieves a schedule by ID.
func (uc *DepreciationUseCase) GetSchedule(ctx context.Context, id string) (*domain.DepreciationSchedule, error) {
	return uc.scheduleRepo.GetByID(ctx, nil, id)
}

// BatchInput calculates one period for many assets.
type BatchInput struct {
	PeriodStart     time.Time
	PeriodEnd       time.Time
	UnitsProduced   map[string]decimal.Decimal
	AssetIDs        []string
	FinancialYearID string
	Period          string
	Actor           string
}

// BatchResult is the outcome for one asset of a batch.
type BatchResult struct {
	Schedule *domain.DepreciationSchedule
	Err      error
	AssetID  string
}

// CalculateBatch runs Calculate for every asset with bounded parallelism.
// Per-asset failures are reported in the results; only cancellation of ctx
// fails the batch as a whole.
func (uc *DepreciationUseCase) CalculateBatch(ctx context.Context, input BatchInput) ([]BatchResult, error) {
	results := make([]BatchResult, len(input.AssetIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, assetID := range input.AssetIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			in := CalculateInput{
				AssetID:         assetID,
				FinancialYearID: input.FinancialYearID,
				Period:          input.Period,
				PeriodStart:     input.PeriodStart,
				PeriodEnd:       input.PeriodEnd,
				Actor:           input.Actor,
			}
			if units, ok := input.UnitsProduced[assetID]; ok {
				in.UnitsProduced = &units
			}
			s, err := uc.Calculate(gctx, in)
			results[i] = BatchResult{AssetID: assetID, Schedule: s, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	zerolog.Ctx(ctx).Info().
		Int("assets", len(results)).
		Int("failed", failed).
		Str("period", input.Period).
		Msg("depreciation batch calculated")

	return results, nil
}

func (uc *DepreciationUseCase) retry(ctx context.Context, op func() error) error {
	if uc.retrier == nil {
		return op()
	}
	return uc.retrier.Retry(ctx, op)
}
