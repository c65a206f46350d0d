package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/orgledger/internal/domain"
)

// Every repository method takes the transaction it runs in. A nil
// Transaction means autocommit against the pool.

// AccountRepository defines data access for the chart of accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	Update(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	GetByCode(ctx context.Context, tx Transaction, scopeID, code string) (*domain.Account, error)
	GetByIDs(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	// ListByScope returns every account of the scope ordered by code.
	ListByScope(ctx context.Context, tx Transaction, scopeID string) ([]*domain.Account, error)
}

// JournalRepository defines data access for journal entries and their lines.
type JournalRepository interface {
	// Create inserts the entry and all lines. A duplicate entry number
	// yields domain.ErrSequenceConflict.
	Create(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.JournalEntry, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.JournalEntry, error)
	UpdateStatus(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	// ReplaceDraft rewrites header fields and lines of a DRAFT entry.
	ReplaceDraft(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
}

// SequenceRepository allocates entry numbers.
type SequenceRepository interface {
	// Next atomically increments the (scope, year, prefix) counter. The
	// counter row stays locked until tx ends.
	Next(ctx context.Context, tx Transaction, scopeID string, year int, prefix string) (int64, error)
}

// ActivityLine is one posted journal line as seen by reports.
type ActivityLine struct {
	EntryDate   time.Time
	EntryID     string
	PostedAt    time.Time
	EntryNumber string
	Narration   string
	Description string
	LineNo      int
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// BalanceRepository aggregates POSTED journal lines. Draft and cancelled
// entries are never counted.
type BalanceRepository interface {
	AccountTotals(ctx context.Context, tx Transaction, accountID string, asOf *time.Time) (domain.Totals, error)
	// ScopeTotals returns per-account activity dated on or before asOf.
	ScopeTotals(ctx context.Context, tx Transaction, scopeID string, asOf time.Time) (map[string]domain.Totals, error)
	// WindowTotals returns per-account activity dated in [from, to]. Entries
	// whose reference type equals excludeRefType are skipped when it is set.
	WindowTotals(ctx context.Context, tx Transaction, scopeID string, from, to time.Time, excludeRefType string) (map[string]domain.Totals, error)
	// AccountTotalsBefore returns activity dated strictly before date.
	AccountTotalsBefore(ctx context.Context, tx Transaction, accountID string, date time.Time) (domain.Totals, error)
	// StatementLines returns lines dated in [from, to] ordered by entry
	// date, entry number and line number.
	StatementLines(ctx context.Context, tx Transaction, accountID string, from, to time.Time) ([]ActivityLine, error)
	PostedTotals(ctx context.Context, tx Transaction, scopeID string) (domain.Totals, error)
}

// AssetRepository reads assets and updates their running book value.
type AssetRepository interface {
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.Asset, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Asset, error)
	UpdateBookValue(ctx context.Context, tx Transaction, asset *domain.Asset) error
}

// ScheduleRepository defines data access for depreciation schedules.
type ScheduleRepository interface {
	// Create yields domain.ErrDuplicatePeriod if a live schedule exists for
	// the same asset, financial year, period and start date.
	Create(ctx context.Context, tx Transaction, schedule *domain.DepreciationSchedule) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.DepreciationSchedule, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.DepreciationSchedule, error)
	ExistsForPeriod(ctx context.Context, tx Transaction, assetID, financialYearID, period string, start time.Time) (bool, error)
	UpdateStatus(ctx context.Context, tx Transaction, schedule *domain.DepreciationSchedule) error
}

// PeriodRepository defines data access for financial years, periods and
// closings.
type PeriodRepository interface {
	GetYear(ctx context.Context, tx Transaction, id string) (*domain.FinancialYear, error)
	GetYearForUpdate(ctx context.Context, tx Transaction, id string) (*domain.FinancialYear, error)
	UpdateYear(ctx context.Context, tx Transaction, year *domain.FinancialYear) error
	// GetPeriod returns the period of year starting at start, or
	// domain.ErrNotFound.
	GetPeriod(ctx context.Context, tx Transaction, financialYearID string, start time.Time) (*domain.FinancialPeriod, error)
	UpsertPeriod(ctx context.Context, tx Transaction, period *domain.FinancialPeriod) error
	// IsDateLocked reports whether date falls in a locked period or a closed
	// financial year of the scope. Inside a transaction it holds a share
	// lock on the covering year until commit, so it waits for a running
	// closing. IsYearClosed does the same.
	IsDateLocked(ctx context.Context, tx Transaction, scopeID string, date time.Time) (bool, error)
	// IsYearClosed reports whether date falls in a closed financial year.
	IsYearClosed(ctx context.Context, tx Transaction, scopeID string, date time.Time) (bool, error)
	CreateClosing(ctx context.Context, tx Transaction, closing *domain.PeriodClosing) error
}

// MappingRepository stores per-scope account mappings.
type MappingRepository interface {
	// Get returns domain.ErrMappingNotFound when key is not mapped.
	Get(ctx context.Context, tx Transaction, scopeID string, key domain.MappingKey) (*domain.AccountMapping, error)
	Upsert(ctx context.Context, tx Transaction, mapping *domain.AccountMapping) error
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
	// BeginReadOnly opens a REPEATABLE READ READ ONLY transaction so a
	// report sees one consistent snapshot.
	BeginReadOnly(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Locker provides cross-process mutual exclusion.
type Locker interface {
	// TryLock returns ok=false when key is already held.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}
