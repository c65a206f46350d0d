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

// ScheduleRepository implements usecase.ScheduleRepository.
type ScheduleRepository struct {
	db generated.DBTX
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(db generated.DBTX) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a schedule. The partial unique index on live schedules
// turns a second calculation of the same slot into ErrDuplicatePeriod.
func (r *ScheduleRepository) Create(ctx context.Context, tx usecase.Transaction, s *domain.DepreciationSchedule) error {
	_, err := querier(r.db, tx).Exec(ctx, `
		INSERT INTO depreciation_schedules (
			id, scope_id, asset_id, financial_year_id, period, period_start, period_end,
			period_years, method, status, units_produced, opening_book_value,
			depreciation_amount, closing_book_value, rate, interest_component,
			principal_component, journal_entry_id, calculated_at, posted_by, posted_at, cancelled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		s.ID,
		s.ScopeID,
		s.AssetID,
		s.FinancialYearID,
		s.Period,
		dateToPgDate(s.PeriodStart),
		dateToPgDate(s.PeriodEnd),
		decimalToNumeric(s.PeriodYears),
		string(s.Method),
		string(s.Status),
		optionalNumeric(s.UnitsProduced),
		decimalToNumeric(s.OpeningBookValue),
		decimalToNumeric(s.DepreciationAmount),
		decimalToNumeric(s.ClosingBookValue),
		decimalToNumeric(s.Rate),
		decimalToNumeric(s.InterestComponent),
		decimalToNumeric(s.PrincipalComponent),
		optionalText(s.JournalEntryID),
		timeToPgTimestamptz(s.CalculatedAt),
		textOrNull(s.PostedBy),
		optionalTimestamptz(s.PostedAt),
		optionalTimestamptz(s.CancelledAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: asset %s period %s", domain.ErrDuplicatePeriod, s.AssetID, s.Period)
	}
	return err
}

const selectSchedule = `
	SELECT id, scope_id, asset_id, financial_year_id, period, period_start, period_end,
	       period_years, method, status, units_produced, opening_book_value,
	       depreciation_amount, closing_book_value, rate, interest_component,
	       principal_component, journal_entry_id, calculated_at, posted_by, posted_at, cancelled_at
	FROM depreciation_schedules WHERE id = $1`

// GetByID retrieves a schedule by ID.
func (r *ScheduleRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.DepreciationSchedule, error) {
	return scanSchedule(querier(r.db, tx).QueryRow(ctx, selectSchedule, id))
}

// GetByIDForUpdate retrieves a schedule by ID with a FOR UPDATE lock.
func (r *ScheduleRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.DepreciationSchedule, error) {
	return scanSchedule(querier(r.db, tx).QueryRow(ctx, selectSchedule+` FOR UPDATE`, id))
}

// ExistsForPeriod reports whether a non-cancelled schedule occupies the slot.
func (r *ScheduleRepository) ExistsForPeriod(ctx context.Context, tx usecase.Transaction, assetID, financialYearID, period string, start time.Time) (bool, error) {
	var exists bool
	err := querier(r.db, tx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM depreciation_schedules
			WHERE asset_id = $1 AND financial_year_id = $2 AND period = $3
			  AND period_start = $4 AND status <> 'CANCELLED'
		)`,
		assetID, financialYearID, period, dateToPgDate(start),
	).Scan(&exists)
	return exists, err
}

// UpdateStatus writes the status together with its posting and
// cancellation stamps.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, s *domain.DepreciationSchedule) error {
	_, err := querier(r.db, tx).Exec(ctx, `
		UPDATE depreciation_schedules
		SET status = $2, journal_entry_id = $3, posted_by = $4, posted_at = $5, cancelled_at = $6
		WHERE id = $1`,
		s.ID,
		string(s.Status),
		optionalText(s.JournalEntryID),
		textOrNull(s.PostedBy),
		optionalTimestamptz(s.PostedAt),
		optionalTimestamptz(s.CancelledAt),
	)
	return err
}

func scanSchedule(row pgx.Row) (*domain.DepreciationSchedule, error) {
	var (
		s                                   domain.DepreciationSchedule
		start, end                          pgtype.Date
		method, status                      string
		periodYears, units, opening, amount pgtype.Numeric
		closing, rate, interest, principal  pgtype.Numeric
		entryID, postedBy                   pgtype.Text
		calculatedAt, postedAt, cancelledAt pgtype.Timestamptz
	)
	err := row.Scan(
		&s.ID, &s.ScopeID, &s.AssetID, &s.FinancialYearID, &s.Period, &start, &end,
		&periodYears, &method, &status, &units, &opening,
		&amount, &closing, &rate, &interest,
		&principal, &entryID, &calculatedAt, &postedBy, &postedAt, &cancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, err
	}

	s.PeriodStart = start.Time
	s.PeriodEnd = end.Time
	s.PeriodYears = numericToDecimal(periodYears)
	s.Method = domain.DepreciationMethod(method)
	s.Status = domain.ScheduleStatus(status)
	s.UnitsProduced = numericPtr(units)
	s.OpeningBookValue = numericToDecimal(opening)
	s.DepreciationAmount = numericToDecimal(amount)
	s.ClosingBookValue = numericToDecimal(closing)
	s.Rate = numericToDecimal(rate)
	s.InterestComponent = numericToDecimal(interest)
	s.PrincipalComponent = numericToDecimal(principal)
	s.JournalEntryID = textPtr(entryID)
	s.CalculatedAt = calculatedAt.Time
	s.PostedBy = postedBy.String
	s.PostedAt = timestamptzPtr(postedAt)
	s.CancelledAt = timestamptzPtr(cancelledAt)

	return &s, nil
}
