package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/orgledger/internal/domain"
)

// JournalUseCase creates, posts and cancels journal entries.
type JournalUseCase struct {
	txManager    TransactionManager
	accountRepo  AccountRepository
	journalRepo  JournalRepository
	sequenceRepo SequenceRepository
	periodRepo   PeriodRepository
	auditRepo    AuditRepository
	outboxRepo   OutboxRepository
	retrier      Retrier
	idGen        IDGenerator
	metrics      Metrics
	now          func() time.Time
}

// NewJournalUseCase creates a new JournalUseCase.
func NewJournalUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	journalRepo JournalRepository,
	sequenceRepo SequenceRepository,
	periodRepo PeriodRepository,
	auditRepo AuditRepository,
	outboxRepo OutboxRepository,
	retrier Retrier,
	idGen IDGenerator,
) *JournalUseCase {
	return &JournalUseCase{
		txManager:    txManager,
		accountRepo:  accountRepo,
		journalRepo:  journalRepo,
		sequenceRepo: sequenceRepo,
		periodRepo:   periodRepo,
		auditRepo:    auditRepo,
		outboxRepo:   outboxRepo,
		retrier:      retrier,
		idGen:        idGen,
		metrics:      nopMetrics{},
		now:          defaultNow,
	}
}

// WithNow overrides the clock.
func (uc *JournalUseCase) WithNow(now func() time.Time) *JournalUseCase {
	uc.now = now
	return uc
}

// WithMetrics attaches a metrics sink.
func (uc *JournalUseCase) WithMetrics(m Metrics) *JournalUseCase {
	if m != nil {
		uc.metrics = m
	}
	return uc
}

// EntryLineInput is one requested debit or credit.
type EntryLineInput struct {
	AccountID   string
	Description string `validate:"max=500"`
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// CreateEntryInput represents a posting request.
type CreateEntryInput struct {
	EntryDate time.Time `validate:"required"`
	Reference *domain.Reference
	ScopeID   string `validate:"required"`
	Narration string `validate:"max=1000"`
	// Prefix defaults to JE.
	Prefix string `validate:"omitempty,alpha,max=8"`
	Actor  string `validate:"required"`
	Lines  []EntryLineInput
}

// PostingOptions tunes CreateAndPostTx for internal callers.
type PostingOptions struct {
	// AllowLockedPeriod lets the year-end close date its entry inside an
	// already locked final month. Closed years are still refused.
	AllowLockedPeriod bool
	// SweepInactive lets closing entries reach deactivated income and
	// expense accounts that still carry activity.
	SweepInactive bool
}

// CreateEntry validates a user-authored entry and stores it as DRAFT with
// the next entry number of its (scope, year, prefix).
func (uc *JournalUseCase) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.JournalEntry, error) {
	entry, err := uc.buildEntry(input)
	if err != nil {
		uc.metrics.EntryRejected(ErrorCategory(err))
		return nil, err
	}

	err = uc.retry(ctx, func() error {
		return withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
			return uc.insert(ctx, tx, entry, prefixOf(input.Prefix), false, PostingOptions{})
		})
	})
	if err != nil {
		uc.metrics.EntryRejected(ErrorCategory(err))
		return nil, err
	}

	uc.metrics.EntryCreated(prefixOf(input.Prefix))
	zerolog.Ctx(ctx).Info().
		Str("entry_id", entry.ID).
		Str("entry_number", entry.EntryNumber).
		Str("total", entry.TotalAmount.StringFixed(2)).
		Msg("journal entry created")

	return entry, nil
}

// CreateAndPostTx records an already-posted entry inside the caller's
// transaction. Callers are trusted subsystems and may target accounts that
// refuse manual entries.
func (uc *JournalUseCase) CreateAndPostTx(ctx context.Context, tx Transaction, input CreateEntryInput, opts PostingOptions) (*domain.JournalEntry, error) {
	entry, err := uc.buildEntry(input)
	if err != nil {
		return nil, err
	}
	if err := entry.Post(input.Actor, uc.now()); err != nil {
		return nil, err
	}
	if err := uc.insert(ctx, tx, entry, prefixOf(input.Prefix), true, opts); err != nil {
		return nil, err
	}
	if err := uc.emitPosted(ctx, tx, entry); err != nil {
		return nil, err
	}

	uc.metrics.EntryPosted(prefixOf(input.Prefix))
	return entry, nil
}

// PostEntry makes a DRAFT entry effective for balances.
func (uc *JournalUseCase) PostEntry(ctx context.Context, id, actor string) (*domain.JournalEntry, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}

	var posted *domain.JournalEntry
	err := uc.retry(ctx, func() error {
		return withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
			entry, err := uc.journalRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if entry.Status != domain.EntryStatusDraft {
				return fmt.Errorf("%w: cannot post %s entry", domain.ErrInvalidTransition, entry.Status)
			}
			if err := uc.checkPeriod(ctx, tx, entry.ScopeID, entry.EntryDate); err != nil {
				return err
			}
			if err := uc.checkAccounts(ctx, tx, entry, false, PostingOptions{}); err != nil {
				return err
			}

			before := *entry
			if err := entry.Post(actor, uc.now()); err != nil {
				return err
			}
			if err := uc.journalRepo.UpdateStatus(ctx, tx, entry); err != nil {
				return err
			}
			if err := uc.emitPosted(ctx, tx, entry); err != nil {
				return err
			}
			if err := writeAudit(ctx, uc.auditRepo, tx, *entry.PostedAt, auditRecord{
				scopeID:      entry.ScopeID,
				actor:        actor,
				action:       domain.AuditActionJournalPost,
				resourceType: domain.ResourceJournalEntry,
				resourceID:   entry.ID,
				before:       before.Status,
				after:        entry.Status,
			}); err != nil {
				return err
			}

			posted = entry
			return nil
		})
	})
	if err != nil {
		uc.metrics.EntryRejected(ErrorCategory(err))
		return nil, err
	}

	uc.metrics.EntryPosted(prefixFromNumber(posted.EntryNumber))
	zerolog.Ctx(ctx).Info().
		Str("entry_id", posted.ID).
		Str("entry_number", posted.EntryNumber).
		Str("actor", actor).
		Msg("journal entry posted")

	return posted, nil
}

// CancelEntry withdraws a POSTED entry from all balance computations. No
// reversing entry is generated.
func (uc *JournalUseCase) CancelEntry(ctx context.Context, id, actor, reason string) (*domain.JournalEntry, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}

	var cancelled *domain.JournalEntry
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		entry, err := uc.journalRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		before := *entry
		if err := entry.Cancel(actor, reason, uc.now()); err != nil {
			return err
		}
		if err := uc.checkPeriod(ctx, tx, entry.ScopeID, entry.EntryDate); err != nil {
			return err
		}
		if err := uc.journalRepo.UpdateStatus(ctx, tx, entry); err != nil {
			return err
		}

		ev := domain.NewOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeJournalEntry, entry.ID,
			domain.EventTypeJournalCancelled, domain.JournalCancelledEvent{
				EntryID:     entry.ID,
				ScopeID:     entry.ScopeID,
				EntryNumber: entry.EntryNumber,
				Reason:      entry.CancelReason,
				CancelledBy: actor,
			}, *entry.CancelledAt)
		if err := writeEvent(ctx, uc.outboxRepo, tx, ev); err != nil {
			return err
		}
		if err := writeAudit(ctx, uc.auditRepo, tx, *entry.CancelledAt, auditRecord{
			scopeID:      entry.ScopeID,
			actor:        actor,
			action:       domain.AuditActionJournalCancel,
			resourceType: domain.ResourceJournalEntry,
			resourceID:   entry.ID,
			reason:       reason,
			before:       before.Status,
			after:        entry.Status,
		}); err != nil {
			return err
		}

		cancelled = entry
		return nil
	})
	if err != nil {
		uc.metrics.EntryRejected(ErrorCategory(err))
		return nil, err
	}

	uc.metrics.EntryCancelled()
	zerolog.Ctx(ctx).Warn().
		Str("entry_id", cancelled.ID).
		Str("entry_number", cancelled.EntryNumber).
		Str("reason", reason).
		Msg("journal entry cancelled")

	return cancelled, nil
}

// UpdateDraftInput carries draft changes. Nil fields are kept; a non-nil
// Lines slice replaces every line.
type UpdateDraftInput struct {
	EntryDate *time.Time
	Narration *string
	Reference *domain.Reference
	Lines     []EntryLineInput
	Actor     string `validate:"required"`
}

// UpdateDraft edits a DRAFT entry and re-runs full validation. Moving the
// entry into another year allocates a number from that year's sequence; the
// old number is left unused.
func (uc *JournalUseCase) UpdateDraft(ctx context.Context, id string, input UpdateDraftInput) (*domain.JournalEntry, error) {
	if err := domain.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Narration != nil && len(*input.Narration) > domain.MaxNarrationLength {
		return nil, fmt.Errorf("%w: narration exceeds %d characters", domain.ErrValidation, domain.MaxNarrationLength)
	}

	var updated *domain.JournalEntry
	err := uc.retry(ctx, func() error {
		return withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
			entry, err := uc.journalRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if entry.Status != domain.EntryStatusDraft {
				return fmt.Errorf("%w: cannot edit %s entry", domain.ErrInvalidTransition, entry.Status)
			}

			before := *entry
			if input.EntryDate != nil {
				entry.EntryDate = domain.DateOnly(*input.EntryDate)
			}
			if input.Narration != nil {
				entry.Narration = *input.Narration
			}
			if input.Reference != nil {
				entry.Reference = input.Reference
			}
			if input.Lines != nil {
				entry.Lines = uc.buildLines(entry.ID, input.Lines)
			}
			if err := entry.Validate(); err != nil {
				return err
			}
			if err := uc.checkPeriod(ctx, tx, entry.ScopeID, entry.EntryDate); err != nil {
				return err
			}
			if err := uc.checkAccounts(ctx, tx, entry, false, PostingOptions{}); err != nil {
				return err
			}

			if year := entry.EntryDate.Year(); year != before.EntryDate.Year() {
				prefix := prefixFromNumber(entry.EntryNumber)
				seq, err := uc.sequenceRepo.Next(ctx, tx, entry.ScopeID, year, prefix)
				if err != nil {
					return err
				}
				entry.EntryNumber = domain.FormatEntryNumber(prefix, year, seq)
			}

			entry.UpdatedAt = uc.now()
			if err := uc.journalRepo.ReplaceDraft(ctx, tx, entry); err != nil {
				return err
			}
			if err := writeAudit(ctx, uc.auditRepo, tx, entry.UpdatedAt, auditRecord{
				scopeID:      entry.ScopeID,
				actor:        input.Actor,
				action:       domain.AuditActionJournalUpdate,
				resourceType: domain.ResourceJournalEntry,
				resourceID:   entry.ID,
				before:       before,
				after:        entry,
			}); err != nil {
				return err
			}

			updated = entry
			return nil
		})
	})
	if err != nil {
		uc.metrics.EntryRejected(ErrorCategory(err))
		return nil, err
	}
	return updated, nil
}

// GetEntry retrieves an entry with its lines.
func (uc *JournalUseCase) GetEntry(ctx context.Context, id string) (*domain.JournalEntry, error) {
	return uc.journalRepo.GetByID(ctx, nil, id)
}

func (uc *JournalUseCase) buildEntry(input CreateEntryInput) (*domain.JournalEntry, error) {
	if err := domain.ValidateStruct(input); err != nil {
		return nil, err
	}

	now := uc.now()
	entry := &domain.JournalEntry{
		ID:        uc.idGen.Generate(),
		ScopeID:   input.ScopeID,
		EntryDate: domain.DateOnly(input.EntryDate),
		Narration: input.Narration,
		Reference: input.Reference,
		Status:    domain.EntryStatusDraft,
		CreatedBy: input.Actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	entry.Lines = uc.buildLines(entry.ID, input.Lines)

	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (uc *JournalUseCase) buildLines(entryID string, in []EntryLineInput) []domain.JournalLine {
	lines := make([]domain.JournalLine, len(in))
	for i, l := range in {
		lines[i] = domain.JournalLine{
			ID:          uc.idGen.Generate(),
			EntryID:     entryID,
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
			LineNo:      i + 1,
		}
	}
	return lines
}

// insert runs the checks that need the store, allocates the entry number and
// writes the entry.
func (uc *JournalUseCase) insert(ctx context.Context, tx Transaction, entry *domain.JournalEntry, prefix string, trusted bool, opts PostingOptions) error {
	if opts.AllowLockedPeriod {
		if err := uc.checkYearOpen(ctx, tx, entry.ScopeID, entry.EntryDate); err != nil {
			return err
		}
	} else if err := uc.checkPeriod(ctx, tx, entry.ScopeID, entry.EntryDate); err != nil {
		return err
	}
	if err := uc.checkAccounts(ctx, tx, entry, trusted, opts); err != nil {
		return err
	}

	seq, err := uc.sequenceRepo.Next(ctx, tx, entry.ScopeID, entry.EntryDate.Year(), prefix)
	if err != nil {
		return err
	}
	entry.EntryNumber = domain.FormatEntryNumber(prefix, entry.EntryDate.Year(), seq)
	if err := uc.journalRepo.Create(ctx, tx, entry); err != nil {
		return err
	}

	return writeAudit(ctx, uc.auditRepo, tx, entry.CreatedAt, auditRecord{
		scopeID:      entry.ScopeID,
		actor:        entry.CreatedBy,
		action:       domain.AuditActionJournalCreate,
		resourceType: domain.ResourceJournalEntry,
		resourceID:   entry.ID,
		after:        entry,
	})
}

func (uc *JournalUseCase) checkAccounts(ctx context.Context, tx Transaction, entry *domain.JournalEntry, trusted bool, opts PostingOptions) error {
	ids := entry.AccountIDs()
	accounts, err := uc.accountRepo.GetByIDs(ctx, tx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	for _, id := range ids {
		acc, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
		check := acc.ValidatePosting(entry.ScopeID, trusted)
		if opts.SweepInactive {
			check = acc.ValidateSweep(entry.ScopeID)
		}
		if check != nil {
			return check
		}
	}
	return nil
}

// checkPeriod runs before any other store check so that postings queue
// behind a closing that holds the financial year.
func (uc *JournalUseCase) checkPeriod(ctx context.Context, tx Transaction, scopeID string, date time.Time) error {
	locked, err := uc.periodRepo.IsDateLocked(ctx, tx, scopeID, date)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("%w: %s", domain.ErrPeriodLocked, date.Format(time.DateOnly))
	}
	return nil
}

// checkYearOpen refuses dates inside a closed financial year but tolerates
// locked months.
func (uc *JournalUseCase) checkYearOpen(ctx context.Context, tx Transaction, scopeID string, date time.Time) error {
	closed, err := uc.periodRepo.IsYearClosed(ctx, tx, scopeID, date)
	if err != nil {
		return err
	}
	if closed {
		return fmt.Errorf("%w: %s", domain.ErrPeriodLocked, date.Format(time.DateOnly))
	}
	return nil
}

func (uc *JournalUseCase) emitPosted(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error {
	ev := domain.NewOutboxEvent(uc.idGen.Generate(), domain.AggregateTypeJournalEntry, entry.ID,
		domain.EventTypeJournalPosted, domain.JournalPostedEvent{
			EntryID:     entry.ID,
			ScopeID:     entry.ScopeID,
			EntryNumber: entry.EntryNumber,
			EntryDate:   entry.EntryDate.Format(time.DateOnly),
			TotalAmount: entry.TotalAmount.StringFixed(2),
			PostedBy:    entry.PostedBy,
		}, *entry.PostedAt)
	return writeEvent(ctx, uc.outboxRepo, tx, ev)
}

func (uc *JournalUseCase) retry(ctx context.Context, op func() error) error {
	if uc.retrier == nil {
		return op()
	}
	return uc.retrier.Retry(ctx, op)
}

func prefixOf(p string) string {
	if p == "" {
		return domain.PrefixJournal
	}
	return strings.ToUpper(p)
}

func prefixFromNumber(number string) string {
	if i := strings.IndexByte(number, '/'); i >= 0 {
		return number[:i]
	}
	return number
}

// IsRetryable reports whether err is worth retrying the whole transaction.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrSequenceConflict)
}
