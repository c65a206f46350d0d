package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/infrastructure/postgres/generated"
	"github.com/iho/orgledger/internal/usecase"
)

// PeriodRepository implements usecase.PeriodRepository over
// financial_years, financial_periods and period_closings.
type PeriodRepository struct {
	db generated.DBTX
}

// NewPeriodRepository creates a new PeriodRepository.
func NewPeriodRepository(db generated.DBTX) *PeriodRepository {
	return &PeriodRepository{db: db}
}

const selectYear = `
	SELECT id, scope_id, name, start_date, end_date, is_active, is_closed, closed_by, closed_at
	FROM financial_years WHERE id = $1`

// CreateYear inserts a financial year.
func (r *PeriodRepository) CreateYear(ctx context.Context, tx usecase.Transaction, y *domain.FinancialYear) error {
	_, err := querier(r.db, tx).Exec(ctx, `
		INSERT INTO financial_years (id, scope_id, name, start_date, end_date, is_active, is_closed, closed_by, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		y.ID, y.ScopeID, y.Name, dateToPgDate(y.StartDate), dateToPgDate(y.EndDate),
		y.IsActive, y.IsClosed, textOrNull(y.ClosedBy), optionalTimestamptz(y.ClosedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: financial year %s", domain.ErrConflict, y.Name)
	}
	return err
}

// GetYear retrieves a financial year by ID.
func (r *PeriodRepository) GetYear(ctx context.Context, tx usecase.Transaction, id string) (*domain.FinancialYear, error) {
	return scanYear(querier(r.db, tx).QueryRow(ctx, selectYear, id))
}

// GetYearForUpdate retrieves a financial year with a FOR UPDATE lock.
// Closings of the same year serialise on this row.
func (r *PeriodRepository) GetYearForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.FinancialYear, error) {
	return scanYear(querier(r.db, tx).QueryRow(ctx, selectYear+` FOR UPDATE`, id))
}

// UpdateYear writes the active and closed flags of a year.
func (r *PeriodRepository) UpdateYear(ctx context.Context, tx usecase.Transaction, y *domain.FinancialYear) error {
	_, err := querier(r.db, tx).Exec(ctx, `
		UPDATE financial_years
		SET is_active = $2, is_closed = $3, closed_by = $4, closed_at = $5
		WHERE id = $1`,
		y.ID, y.IsActive, y.IsClosed, textOrNull(y.ClosedBy), optionalTimestamptz(y.ClosedAt),
	)
	return err
}

// GetPeriod returns the period of a year starting at start.
func (r *PeriodRepository) GetPeriod(ctx context.Context, tx usecase.Transaction, financialYearID string, start time.Time) (*domain.FinancialPeriod, error) {
	var (
		p        domain.FinancialPeriod
		from, to pgtype.Date
		closedAt pgtype.Timestamptz
	)
	err := querier(r.db, tx).QueryRow(ctx, `
		SELECT id, scope_id, financial_year_id, name, start_date, end_date, is_locked, is_closed, closed_at
		FROM financial_periods
		WHERE financial_year_id = $1 AND start_date = $2`,
		financialYearID, dateToPgDate(start),
	).Scan(&p.ID, &p.ScopeID, &p.FinancialYearID, &p.Name, &from, &to, &p.IsLocked, &p.IsClosed, &closedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: financial period", domain.ErrNotFound)
		}
		return nil, err
	}

	p.StartDate = from.Time
	p.EndDate = to.Time
	p.ClosedAt = timestamptzPtr(closedAt)
	return &p, nil
}

// UpsertPeriod inserts a period or updates its lock flags.
func (r *PeriodRepository) UpsertPeriod(ctx context.Context, tx usecase.Transaction, p *domain.FinancialPeriod) error {
	_, err := querier(r.db, tx).Exec(ctx, `
		INSERT INTO financial_periods (id, scope_id, financial_year_id, name, start_date, end_date, is_locked, is_closed, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (financial_year_id, start_date)
		DO UPDATE SET end_date = EXCLUDED.end_date, is_locked = EXCLUDED.is_locked,
		              is_closed = EXCLUDED.is_closed, closed_at = EXCLUDED.closed_at`,
		p.ID, p.ScopeID, p.FinancialYearID, p.Name, dateToPgDate(p.StartDate), dateToPgDate(p.EndDate),
		p.IsLocked, p.IsClosed, optionalTimestamptz(p.ClosedAt),
	)
	return err
}

// shareYear takes a FOR SHARE lock on the year covering date. It blocks
// while a closing holds the row FOR UPDATE, and the lock checks that follow
// then see the committed period flags.
func (r *PeriodRepository) shareYear(ctx context.Context, tx usecase.Transaction, scopeID string, date time.Time) error {
	_, err := querier(r.db, tx).Exec(ctx, `
		SELECT id FROM financial_years
		WHERE scope_id = $1 AND $2 BETWEEN start_date AND end_date
		FOR SHARE`,
		scopeID, dateToPgDate(date),
	)
	return err
}

// IsDateLocked reports whether date falls in a locked period or a closed
// year of the scope.
func (r *PeriodRepository) IsDateLocked(ctx context.Context, tx usecase.Transaction, scopeID string, date time.Time) (bool, error) {
	if err := r.shareYear(ctx, tx, scopeID, date); err != nil {
		return false, err
	}

	var locked bool
	err := querier(r.db, tx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM financial_periods
			WHERE scope_id = $1 AND is_locked AND $2 BETWEEN start_date AND end_date
		) OR EXISTS (
			SELECT 1 FROM financial_years
			WHERE scope_id = $1 AND is_closed AND $2 BETWEEN start_date AND end_date
		)`,
		scopeID, dateToPgDate(date),
	).Scan(&locked)
	return locked, err
}

// IsYearClosed reports whether date falls in a closed year of the scope.
func (r *PeriodRepository) IsYearClosed(ctx context.Context, tx usecase.Transaction, scopeID string, date time.Time) (bool, error) {
	if err := r.shareYear(ctx, tx, scopeID, date); err != nil {
		return false, err
	}

	var closed bool
	err := querier(r.db, tx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM financial_years
			WHERE scope_id = $1 AND is_closed AND $2 BETWEEN start_date AND end_date
		)`,
		scopeID, dateToPgDate(date),
	).Scan(&closed)
	return closed, err
}

// CreateClosing records a completed month or year closing.
func (r *PeriodRepository) CreateClosing(ctx context.Context, tx usecase.Transaction, c *domain.PeriodClosing) error {
	_, err := querier(r.db, tx).Exec(ctx, `
		INSERT INTO period_closings (
			id, scope_id, financial_year_id, period_id, kind, period_start, period_end,
			total_income, total_expenses, net_surplus, journal_entry_id, closed_by, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.ScopeID, c.FinancialYearID, optionalText(c.PeriodID), string(c.Kind),
		dateToPgDate(c.PeriodStart), dateToPgDate(c.PeriodEnd),
		decimalToNumeric(c.TotalIncome), decimalToNumeric(c.TotalExpenses), decimalToNumeric(c.NetSurplus),
		optionalText(c.JournalEntryID), c.ClosedBy, timeToPgTimestamptz(c.ClosedAt),
	)
	return err
}

func scanYear(row pgx.Row) (*domain.FinancialYear, error) {
	var (
		y        domain.FinancialYear
		from, to pgtype.Date
		closedBy pgtype.Text
		closedAt pgtype.Timestamptz
	)
	err := row.Scan(&y.ID, &y.ScopeID, &y.Name, &from, &to, &y.IsActive, &y.IsClosed, &closedBy, &closedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrYearNotFound
		}
		return nil, err
	}

	y.StartDate = from.Time
	y.EndDate = to.Time
	y.ClosedBy = closedBy.String
	y.ClosedAt = timestamptzPtr(closedAt)
	return &y, nil
}
