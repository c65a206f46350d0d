package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/orgledger/internal/domain"
)

var accountColumns = []string{
	"id", "scope_id", "code", "name", "account_type", "subtype", "parent_id",
	"opening_balance_debit", "opening_balance_credit",
	"is_active", "is_system", "allow_manual_entry", "created_at", "updated_at",
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	account := &domain.Account{
		ID: "acc-1", ScopeID: "scope-1", Code: "11001", Name: "Cash", Type: domain.AccountTypeAsset,
		IsActive: true, AllowManualEntry: true, CreatedAt: now, UpdatedAt: now,
	}

	t.Run("inside transaction", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectBegin()
		pool.ExpectExec("INSERT INTO accounts").WillReturnResult(pgxmock.NewResult("INSERT", 1))
		pool.ExpectCommit()

		tx, err := newTxManagerWithPool(pool).Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, NewAccountRepository(pool).Create(ctx, tx, account))
		require.NoError(t, tx.Commit(ctx))
		assertExpectations(t, pool)
	})

	t.Run("duplicate code", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectExec("INSERT INTO accounts").WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

		err := NewAccountRepository(pool).Create(ctx, nil, account)
		assert.ErrorIs(t, err, domain.ErrDuplicateCode)
		assertExpectations(t, pool)
	})
}

func TestAccountRepository_Get(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	t.Run("by code", func(t *testing.T) {
		pool := newMockPool(t)
		rows := pgxmock.NewRows(accountColumns).AddRow(
			"acc-1", "scope-1", "12901", "Accumulated depreciation", "ASSET", "ACCUMULATED_DEPRECIATION",
			pgtype.Text{String: "acc-0", Valid: true},
			decimalToNumeric(decimal.Zero), decimalToNumeric(decimal.RequireFromString("250.50")),
			true, false, false, timeToPgTimestamptz(now), timeToPgTimestamptz(now),
		)
		pool.ExpectQuery("FROM accounts").WithArgs("scope-1", "12901").WillReturnRows(rows)

		acc, err := NewAccountRepository(pool).GetByCode(ctx, nil, "scope-1", "12901")
		require.NoError(t, err)
		assert.Equal(t, domain.AccountTypeAsset, acc.Type)
		assert.Equal(t, domain.SubtypeAccumulatedDepreciation, acc.Subtype)
		require.NotNil(t, acc.ParentID)
		assert.Equal(t, "acc-0", *acc.ParentID)
		assert.True(t, acc.OpeningBalanceCredit.Equal(decimal.RequireFromString("250.5")))
		assert.False(t, acc.AllowManualEntry)
		assertExpectations(t, pool)
	})

	t.Run("missing", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectQuery("FROM accounts").WithArgs("nope").WillReturnError(pgx.ErrNoRows)

		_, err := NewAccountRepository(pool).GetByID(ctx, nil, "nope")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestJournalRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	entry := &domain.JournalEntry{
		ID: "je-1", ScopeID: "scope-1", EntryNumber: "JE/2025/0001", EntryDate: now,
		Status: domain.EntryStatusDraft, TotalAmount: decimal.NewFromInt(100), CreatedBy: "alice",
		Reference: &domain.Reference{Type: "donation", ID: "don-9"},
		CreatedAt: now, UpdatedAt: now,
		Lines: []domain.JournalLine{
			{ID: "l-1", AccountID: "cash", Debit: decimal.NewFromInt(100), Credit: decimal.Zero, LineNo: 1},
			{ID: "l-2", AccountID: "donations", Debit: decimal.Zero, Credit: decimal.NewFromInt(100), LineNo: 2},
		},
	}

	t.Run("header and lines", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectExec("INSERT INTO journal_entries").WillReturnResult(pgxmock.NewResult("INSERT", 1))
		pool.ExpectExec("INSERT INTO journal_lines").WillReturnResult(pgxmock.NewResult("INSERT", 1))
		pool.ExpectExec("INSERT INTO journal_lines").WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewJournalRepository(pool).Create(ctx, nil, entry))
		assertExpectations(t, pool)
	})

	t.Run("number taken", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectExec("INSERT INTO journal_entries").WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

		err := NewJournalRepository(pool).Create(ctx, nil, entry)
		assert.ErrorIs(t, err, domain.ErrSequenceConflict)
		assertExpectations(t, pool)
	})
}

func TestJournalRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	pool := newMockPool(t)

	header := pgxmock.NewRows([]string{
		"id", "scope_id", "entry_number", "entry_date", "narration", "reference_type", "reference_id",
		"status", "total_amount", "created_by", "posted_by", "posted_at", "cancelled_by", "cancelled_at",
		"cancel_reason", "created_at", "updated_at",
	}).AddRow(
		"je-1", "scope-1", "JE/2025/0001", dateToPgDate(now), "April donation",
		pgtype.Text{String: "donation", Valid: true}, pgtype.Text{String: "don-9", Valid: true},
		"POSTED", decimalToNumeric(decimal.NewFromInt(100)), "alice",
		pgtype.Text{String: "bob", Valid: true}, timeToPgTimestamptz(now),
		pgtype.Text{}, pgtype.Timestamptz{}, pgtype.Text{},
		timeToPgTimestamptz(now), timeToPgTimestamptz(now),
	)
	lines := pgxmock.NewRows([]string{"id", "entry_id", "account_id", "line_no", "description", "debit", "credit"}).
		AddRow("l-1", "je-1", "cash", int32(1), "", decimalToNumeric(decimal.NewFromInt(100)), decimalToNumeric(decimal.Zero)).
		AddRow("l-2", "je-1", "donations", int32(2), "", decimalToNumeric(decimal.Zero), decimalToNumeric(decimal.NewFromInt(100)))

	pool.ExpectQuery("FROM journal_entries").WithArgs("je-1").WillReturnRows(header)
	pool.ExpectQuery("FROM journal_lines").WithArgs("je-1").WillReturnRows(lines)

	entry, err := NewJournalRepository(pool).GetByID(ctx, nil, "je-1")
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusPosted, entry.Status)
	assert.Equal(t, "bob", entry.PostedBy)
	require.NotNil(t, entry.Reference)
	assert.Equal(t, "don-9", entry.Reference.ID)
	assert.Nil(t, entry.CancelledAt)
	require.Len(t, entry.Lines, 2)
	assert.True(t, entry.Lines[1].Credit.Equal(decimal.NewFromInt(100)))
	assertExpectations(t, pool)
}

func TestSequenceRepository_Next(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("INSERT INTO entry_sequences").
		WithArgs("scope-1", int32(2025), "JE").
		WillReturnRows(pgxmock.NewRows([]string{"last_value"}).AddRow(int64(7)))

	n, err := NewSequenceRepository(pool).Next(context.Background(), nil, "scope-1", 2025, "JE")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assertExpectations(t, pool)
}

func TestBalanceRepository_WindowTotals(t *testing.T) {
	pool := newMockPool(t)
	from := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"account_id", "debit", "credit"}).
		AddRow("cash", decimalToNumeric(decimal.NewFromInt(1500)), decimalToNumeric(decimal.NewFromInt(200))).
		AddRow("donations", decimalToNumeric(decimal.Zero), decimalToNumeric(decimal.NewFromInt(1500)))
	pool.ExpectQuery("GROUP BY l.account_id").
		WithArgs("scope-1", dateToPgDate(from), dateToPgDate(to), "period_closing").
		WillReturnRows(rows)

	totals, err := NewBalanceRepository(pool).WindowTotals(context.Background(), nil, "scope-1", from, to, "period_closing")
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.True(t, totals["cash"].Net().Equal(decimal.NewFromInt(1300)))
	assert.True(t, totals["donations"].Credit.Equal(decimal.NewFromInt(1500)))
	assertExpectations(t, pool)
}

func TestBalanceRepository_AccountTotals(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("COALESCE").
		WithArgs("cash", pgtype.Date{}).
		WillReturnRows(pgxmock.NewRows([]string{"debit", "credit"}).
			AddRow(decimalToNumeric(decimal.RequireFromString("10.25")), decimalToNumeric(decimal.Zero)))

	totals, err := NewBalanceRepository(pool).AccountTotals(context.Background(), nil, "cash", nil)
	require.NoError(t, err)
	assert.True(t, totals.Debit.Equal(decimal.RequireFromString("10.25")))
	assert.True(t, totals.Credit.IsZero())
	assertExpectations(t, pool)
}

func TestBalanceRepository_StatementLines(t *testing.T) {
	pool := newMockPool(t)
	from := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
	postedAt := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{
		"entry_date", "posted_at", "id", "entry_number", "narration", "description", "line_no", "debit", "credit",
	}).AddRow(dateToPgDate(from), timeToPgTimestamptz(postedAt), "e-1", "JE/2025/10000", "gift", "", int32(1),
		decimalToNumeric(decimal.NewFromInt(50)), decimalToNumeric(decimal.Zero))
	pool.ExpectQuery(`ORDER BY e\.entry_date, e\.posted_at, e\.id, l\.line_no`).
		WithArgs("cash", dateToPgDate(from), dateToPgDate(to)).
		WillReturnRows(rows)

	lines, err := NewBalanceRepository(pool).StatementLines(context.Background(), nil, "cash", from, to)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "JE/2025/10000", lines[0].EntryNumber)
	assert.True(t, lines[0].PostedAt.Equal(postedAt))
	assert.Equal(t, 1, lines[0].LineNo)
	assertExpectations(t, pool)
}

func TestScheduleRepository_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate live slot", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectExec("INSERT INTO depreciation_schedules").WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

		err := NewScheduleRepository(pool).Create(ctx, nil, &domain.DepreciationSchedule{ID: "s-1", AssetID: "a-1", Period: "FY2025"})
		assert.ErrorIs(t, err, domain.ErrDuplicatePeriod)
	})

	t.Run("missing", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectQuery("FROM depreciation_schedules").WithArgs("s-9").WillReturnError(pgx.ErrNoRows)

		_, err := NewScheduleRepository(pool).GetByID(ctx, nil, "s-9")
		assert.ErrorIs(t, err, domain.ErrScheduleNotFound)
	})
}

func TestPeriodRepository(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("period not found", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectQuery("FROM financial_periods").WithArgs("fy-1", dateToPgDate(start)).WillReturnError(pgx.ErrNoRows)

		_, err := NewPeriodRepository(pool).GetPeriod(ctx, nil, "fy-1", start)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("year not found", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectQuery("FROM financial_years").WithArgs("fy-9").WillReturnError(pgx.ErrNoRows)

		_, err := NewPeriodRepository(pool).GetYearForUpdate(ctx, nil, "fy-9")
		assert.ErrorIs(t, err, domain.ErrYearNotFound)
	})

	t.Run("date locked", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectExec("FOR SHARE").
			WithArgs("scope-1", dateToPgDate(start)).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		pool.ExpectQuery("is_locked").
			WithArgs("scope-1", dateToPgDate(start)).
			WillReturnRows(pgxmock.NewRows([]string{"locked"}).AddRow(true))

		locked, err := NewPeriodRepository(pool).IsDateLocked(ctx, nil, "scope-1", start)
		require.NoError(t, err)
		assert.True(t, locked)
		assertExpectations(t, pool)
	})

	t.Run("year closed waits on the year row", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectExec("FOR SHARE").
			WithArgs("scope-1", dateToPgDate(start)).
			WillReturnError(&pgconn.PgError{Code: "40P01"})

		_, err := NewPeriodRepository(pool).IsYearClosed(ctx, nil, "scope-1", start)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, "40P01", pgErr.Code)
		assertExpectations(t, pool)
	})
}

func TestMappingRepository_GetMissing(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM account_mappings").
		WithArgs("scope-1", "general_fund").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewMappingRepository(pool).Get(context.Background(), nil, "scope-1", domain.MappingGeneralFund)
	assert.ErrorIs(t, err, domain.ErrMappingNotFound)
	assertExpectations(t, pool)
}

func TestOutboxRepository_Roundtrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	pool := newMockPool(t)

	pool.ExpectExec("INSERT INTO outbox_events").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectQuery("WHERE published = FALSE").WithArgs(int32(10)).WillReturnRows(
		pgxmock.NewRows([]string{"id", "aggregate_id", "aggregate_type", "event_type", "payload", "created_at", "published_at", "published"}).
			AddRow("ev-1", "je-1", domain.AggregateTypeJournalEntry, domain.EventTypeJournalPosted,
				[]byte(`{"entry_number":"JE/2025/0001"}`), timeToPgTimestamptz(now), pgtype.Timestamptz{}, false),
	)

	repo := NewOutboxRepository(pool)
	require.NoError(t, repo.Create(ctx, nil, domain.NewOutboxEvent("ev-1", domain.AggregateTypeJournalEntry, "je-1",
		domain.EventTypeJournalPosted, domain.JournalPostedEvent{EntryNumber: "JE/2025/0001"}, now)))

	events, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "JE/2025/0001", events[0].Payload["entry_number"])
	assert.Nil(t, events[0].PublishedAt)
	assertExpectations(t, pool)
}
