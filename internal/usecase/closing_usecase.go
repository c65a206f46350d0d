package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/orgledger/internal/domain"
)

// ClosingUseCase closes months and financial years: it zeroes income and
// expense activity into the general fund and locks the window.
type ClosingUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	balanceRepo BalanceRepository
	periodRepo  PeriodRepository
	journal     *JournalUseCase
	mappings    *MappingUseCase
	auditRepo   AuditRepository
	outboxRepo  OutboxRepository
	locker      Locker
	retrier     Retrier
	idGen       IDGenerator
	metrics     Metrics
	now         func() time.Time
	lockTTL     time.Duration
}

// NewClosingUseCase creates a new ClosingUseCase. locker may be nil when a
// single process owns the ledger.
func NewClosingUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	balanceRepo BalanceRepository,
	periodRepo PeriodRepository,
	journal *JournalUseCase,
	mappings *MappingUseCase,
	auditRepo AuditRepository,
	outboxRepo OutboxRepository,
	locker Locker,
	retrier Retrier,
	idGen IDGenerator,
) *ClosingUseCase {
	return &ClosingUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		balanceRepo: balanceRepo,
		periodRepo:  periodRepo,
		journal:     journal,
		mappings:    mappings,
		auditRepo:   auditRepo,
		outboxRepo:  outboxRepo,
		locker:      locker,
		retrier:     retrier,
		idGen:       idGen,
		metrics:     nopMetrics{},
		now:         defaultNow,
		lockTTL:     DefaultClosingLockTTL,
	}
}

// WithNow overrides the clock.
func (uc *ClosingUseCase) WithNow(now func() time.Time) *ClosingUseCase {
	uc.now = now
	return uc
}

// WithMetrics attaches a metrics sink.
func (uc *ClosingUseCase) WithMetrics(m Metrics) *ClosingUseCase {
	if m != nil {
		uc.metrics = m
	}
	return uc
}

// WithLockTTL sets the closing lock expiry.
func (uc *ClosingUseCase) WithLockTTL(ttl time.Duration) *ClosingUseCase {
	if ttl > 0 {
		uc.lockTTL = ttl
	}
	return uc
}

// CloseMonthInput selects the month containing ClosingDate.
type CloseMonthInput struct {
	ClosingDate     time.Time `validate:"required"`
	ScopeID         string    `validate:"required"`
	FinancialYearID string    `validate:"required"`
	Actor           string    `validate:"required"`
}

// CloseYearInput selects a financial year.
type CloseYearInput struct {
	ScopeID         string `validate:"required"`
	FinancialYearID string `validate:"required"`
	Actor           string `validate:"required"`
}

// ClosingLockKey is the lock guarding closings of one financial year.
func ClosingLockKey(scopeID, financialYearID string) string {
	return fmt.Sprintf("ledger:closing:%s:%s", scopeID, financialYearID)
}

// CloseMonth closes the calendar month containing ClosingDate, clipped to
// the financial year, and locks it against further postings.
func (uc *ClosingUseCase) CloseMonth(ctx context.Context, input CloseMonthInput) (*domain.PeriodClosing, error) {
	if err := domain.ValidateStruct(input); err != nil {
		return nil, err
	}

	var closing *domain.PeriodClosing
	err := uc.locked(ctx, input.ScopeID, input.FinancialYearID, func() error {
		return uc.retry(ctx, func() error {
			return withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
				year, err := uc.openYear(ctx, tx, input.ScopeID, input.FinancialYearID)
				if err != nil {
					return err
				}
				start, end, err := domain.MonthWindow(year, input.ClosingDate)
				if err != nil {
					return err
				}

				period, err := uc.periodRepo.GetPeriod(ctx, tx, year.ID, start)
				switch {
				case errors.Is(err, domain.ErrNotFound):
					period = &domain.FinancialPeriod{
						ID:              uc.idGen.Generate(),
						ScopeID:         year.ScopeID,
						FinancialYearID: year.ID,
						Name:            start.Format("2006-01"),
						StartDate:       start,
						EndDate:         end,
					}
				case err != nil:
					return err
				case period.IsClosed:
					return fmt.Errorf("%w: %s", domain.ErrPeriodAlreadyClosed, period.Name)
				}

				c, err := uc.closeWindow(ctx, tx, year, start, end, domain.ClosingKindMonth, input.Actor)
				if err != nil {
					return err
				}

				if err := period.Lock(c.ClosedAt); err != nil {
					return err
				}
				if err := uc.periodRepo.UpsertPeriod(ctx, tx, period); err != nil {
					return err
				}
				c.PeriodID = &period.ID

				if err := uc.record(ctx, tx, c, domain.AuditActionCloseMonth); err != nil {
					return err
				}
				closing = c
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.PeriodClosed(string(domain.ClosingKindMonth))
	uc.log(ctx, closing)
	return closing, nil
}

// CloseYear closes the whole financial year. A closed year is terminal.
func (uc *ClosingUseCase) CloseYear(ctx context.Context, input CloseYearInput) (*domain.PeriodClosing, error) {
	if err := domain.ValidateStruct(input); err != nil {
		return nil, err
	}

	var closing *domain.PeriodClosing
	err := uc.locked(ctx, input.ScopeID, input.FinancialYearID, func() error {
		return uc.retry(ctx, func() error {
			return withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
				year, err := uc.openYear(ctx, tx, input.ScopeID, input.FinancialYearID)
				if err != nil {
					return err
				}

				start, end := domain.DateOnly(year.StartDate), domain.DateOnly(year.EndDate)
				c, err := uc.closeWindow(ctx, tx, year, start, end, domain.ClosingKindYear, input.Actor)
				if err != nil {
					return err
				}

				if err := year.Close(input.Actor, c.ClosedAt); err != nil {
					return err
				}
				if err := uc.periodRepo.UpdateYear(ctx, tx, year); err != nil {
					return err
				}

				if err := uc.record(ctx, tx, c, domain.AuditActionCloseYear); err != nil {
					return err
				}
				closing = c
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.PeriodClosed(string(domain.ClosingKindYear))
	uc.log(ctx, closing)
	return closing, nil
}

func (uc *ClosingUseCase) openYear(ctx context.Context, tx Transaction, scopeID, id string) (*domain.FinancialYear, error) {
	year, err := uc.periodRepo.GetYearForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if year.ScopeID != scopeID {
		return nil, fmt.Errorf("%w: %s", domain.ErrYearNotFound, id)
	}
	if year.IsClosed {
		return nil, fmt.Errorf("%w: %s", domain.ErrYearClosed, year.Name)
	}
	return year, nil
}

// closeWindow totals income and expenses over [start, end] and posts the
// closing entry. Totals exclude earlier closing entries; the entry reverses
// each account's remaining net activity into the general fund.
func (uc *ClosingUseCase) closeWindow(
	ctx context.Context,
	tx Transaction,
	year *domain.FinancialYear,
	start, end time.Time,
	kind domain.ClosingKind,
	actor string,
) (*domain.PeriodClosing, error) {
	fund, err := uc.mappings.Resolve(ctx, tx, year.ScopeID, domain.MappingGeneralFund)
	if err != nil {
		return nil, err
	}

	accounts, err := uc.accountRepo.ListByScope(ctx, tx, year.ScopeID)
	if err != nil {
		return nil, err
	}
	gross, err := uc.balanceRepo.WindowTotals(ctx, tx, year.ScopeID, start, end, ReferenceTypeClosing)
	if err != nil {
		return nil, err
	}
	residual, err := uc.balanceRepo.WindowTotals(ctx, tx, year.ScopeID, start, end, "")
	if err != nil {
		return nil, err
	}

	c := &domain.PeriodClosing{
		ID:              uc.idGen.Generate(),
		ScopeID:         year.ScopeID,
		FinancialYearID: year.ID,
		Kind:            kind,
		PeriodStart:     start,
		PeriodEnd:       end,
		TotalIncome:     decimal.Zero,
		TotalExpenses:   decimal.Zero,
		ClosedBy:        actor,
		ClosedAt:        uc.now(),
	}

	var lines []EntryLineInput
	offset := decimal.Zero
	for _, acc := range accounts {
		switch acc.Type {
		case domain.AccountTypeIncome:
			c.TotalIncome = c.TotalIncome.Add(gross[acc.ID].Credit)
		case domain.AccountTypeExpense:
			c.TotalExpenses = c.TotalExpenses.Add(gross[acc.ID].Debit)
		default:
			continue
		}

		net := residual[acc.ID].Net()
		if net.IsZero() {
			continue
		}
		line := EntryLineInput{AccountID: acc.ID, Debit: decimal.Zero, Credit: decimal.Zero, Description: "Closing " + acc.Code}
		if net.IsPositive() {
			line.Credit = net
		} else {
			line.Debit = net.Neg()
		}
		offset = offset.Add(net)
		lines = append(lines, line)
	}
	c.NetSurplus = c.TotalIncome.Sub(c.TotalExpenses)

	if len(lines) == 0 {
		return c, nil
	}
	if !offset.IsZero() {
		fundLine := EntryLineInput{AccountID: fund.ID, Debit: decimal.Zero, Credit: decimal.Zero, Description: "Net result to general fund"}
		if offset.IsPositive() {
			fundLine.Debit = offset
		} else {
			fundLine.Credit = offset.Neg()
		}
		lines = append(lines, fundLine)
	}

	entry, err := uc.journal.CreateAndPostTx(ctx, tx, CreateEntryInput{
		EntryDate: end,
		ScopeID:   year.ScopeID,
		Narration: fmt.Sprintf("%s closing %s to %s", kind, start.Format(time.DateOnly), end.Format(time.DateOnly)),
		Prefix:    domain.PrefixClosing,
		Actor:     actor,
		Reference: &domain.Reference{Type: ReferenceTypeClosing, ID: c.ID},
		Lines:     lines,
	}, PostingOptions{
		AllowLockedPeriod: kind == domain.ClosingKindYear,
		SweepInactive:     true,
	})
	if err != nil {
		return nil, err
	}
	c.JournalEntryID = &entry.ID
	return c, nil
}

func (uc *ClosingUseCase) record(ctx context.Context, tx Transaction, c *domain.PeriodClosing, action domain.AuditAction) error {
	if err := uc.periodRepo.CreateClosing(ctx, tx, c); err != nil {
		return err
	}

	payload := domain.PeriodClosedEvent{
		ClosingID:       c.ID,
		ScopeID:         c.ScopeID,
		FinancialYearID: c.FinancialYearID,
		Kind:            string(c.Kind),
		PeriodStart:     c.PeriodStart.Format(time.DateOnly),
		PeriodEnd:       c.PeriodEnd.Format(time.DateOnly),
		NetSurplus:      c.NetSurplus.StringFixed(2),
	}
	if c.JournalEntryID != nil {
		payload.JournalEntryID = *c.JournalEntryID
	}
	ev := domain.NewOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeClosing, c.ID, domain.EventTypePeriodClosed, payload, c.ClosedAt)
	if err := writeEvent(ctx, uc.outboxRepo, tx, ev); err != nil {
		return err
	}

	return writeAudit(ctx, uc.auditRepo, tx, c.ClosedAt, auditRecord{
		scopeID:      c.ScopeID,
		actor:        c.ClosedBy,
		action:       action,
		resourceType: domain.ResourcePeriodClosing,
		resourceID:   c.ID,
		after:        c,
	})
}

// locked runs fn while holding the cross-process closing lock for the year.
func (uc *ClosingUseCase) locked(ctx context.Context, scopeID, yearID string, fn func() error) error {
	if uc.locker == nil {
		return fn()
	}

	key := ClosingLockKey(scopeID, yearID)
	token, ok, err := uc.locker.TryLock(ctx, key, uc.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire closing lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrClosingInProgress, key)
	}
	defer func() {
		if err := uc.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to release closing lock")
		}
	}()

	return fn()
}

func (uc *ClosingUseCase) log(ctx context.Context, c *domain.PeriodClosing) {
	ev := zerolog.Ctx(ctx).Info().
		Str("closing_id", c.ID).
		Str("kind", string(c.Kind)).
		Str("from", c.PeriodStart.Format(time.DateOnly)).
		Str("to", c.PeriodEnd.Format(time.DateOnly)).
		Str("income", c.TotalIncome.StringFixed(2)).
		Str("expenses", c.TotalExpenses.StringFixed(2)).
		Str("net_surplus", c.NetSurplus.StringFixed(2))
	if c.JournalEntryID != nil {
		ev = ev.Str("entry_id", *c.JournalEntryID)
	}
	ev.Msg("period closed")
}

func (uc *ClosingUseCase) retry(ctx context.Context, op func() error) error {
	if uc.retrier == nil {
		return op()
	}
	return uc.retrier.Retry(ctx, op)
}
