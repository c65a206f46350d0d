package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/infrastructure/postgres/generated"
	"github.com/iho/orgledger/internal/usecase"
)

// BalanceRepository implements usecase.BalanceRepository. Balances are
// never stored; every figure is summed from POSTED journal lines.
type BalanceRepository struct {
	db generated.DBTX
}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository(db generated.DBTX) *BalanceRepository {
	return &BalanceRepository{db: db}
}

const postedLines = `
	FROM journal_lines l
	JOIN journal_entries e ON e.id = l.entry_id
	WHERE e.status = 'POSTED'`

// AccountTotals sums an account's activity dated on or before asOf. A nil
// asOf covers all time.
func (r *BalanceRepository) AccountTotals(ctx context.Context, tx usecase.Transaction, accountID string, asOf *time.Time) (domain.Totals, error) {
	var cutoff pgtype.Date
	if asOf != nil {
		cutoff = dateToPgDate(*asOf)
	}

	row := querier(r.db, tx).QueryRow(ctx, `
		SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)`+postedLines+`
		  AND l.account_id = $1
		  AND ($2::date IS NULL OR e.entry_date <= $2::date)`,
		accountID, cutoff)

	return scanTotals(row)
}

// AccountTotalsBefore sums an account's activity dated strictly before date.
func (r *BalanceRepository) AccountTotalsBefore(ctx context.Context, tx usecase.Transaction, accountID string, date time.Time) (domain.Totals, error) {
	row := querier(r.db, tx).QueryRow(ctx, `
		SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)`+postedLines+`
		  AND l.account_id = $1
		  AND e.entry_date < $2`,
		accountID, dateToPgDate(date))

	return scanTotals(row)
}

// ScopeTotals returns per-account activity dated on or before asOf.
func (r *BalanceRepository) ScopeTotals(ctx context.Context, tx usecase.Transaction, scopeID string, asOf time.Time) (map[string]domain.Totals, error) {
	rows, err := querier(r.db, tx).Query(ctx, `
		SELECT l.account_id, SUM(l.debit), SUM(l.credit)`+postedLines+`
		  AND e.scope_id = $1
		  AND e.entry_date <= $2
		GROUP BY l.account_id`,
		scopeID, dateToPgDate(asOf))
	if err != nil {
		return nil, err
	}

	return collectTotals(rows)
}

// WindowTotals returns per-account activity dated in [from, to], skipping
// entries whose reference type equals excludeRefType when it is set.
func (r *BalanceRepository) WindowTotals(ctx context.Context, tx usecase.Transaction, scopeID string, from, to time.Time, excludeRefType string) (map[string]domain.Totals, error) {
	rows, err := querier(r.db, tx).Query(ctx, `
		SELECT l.account_id, SUM(l.debit), SUM(l.credit)`+postedLines+`
		  AND e.scope_id = $1
		  AND e.entry_date BETWEEN $2 AND $3
		  AND ($4::text = '' OR e.reference_type IS DISTINCT FROM $4::text)
		GROUP BY l.account_id`,
		scopeID, dateToPgDate(from), dateToPgDate(to), excludeRefType)
	if err != nil {
		return nil, err
	}

	return collectTotals(rows)
}

// StatementLines returns an account's lines dated in [from, to] in posting
// order within each day.
func (r *BalanceRepository) StatementLines(ctx context.Context, tx usecase.Transaction, accountID string, from, to time.Time) ([]usecase.ActivityLine, error) {
	rows, err := querier(r.db, tx).Query(ctx, `
		SELECT e.entry_date, e.posted_at, e.id, e.entry_number, e.narration, l.description, l.line_no, l.debit, l.credit`+postedLines+`
		  AND l.account_id = $1
		  AND e.entry_date BETWEEN $2 AND $3
		ORDER BY e.entry_date, e.posted_at, e.id, l.line_no`,
		accountID, dateToPgDate(from), dateToPgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []usecase.ActivityLine
	for rows.Next() {
		var (
			date          pgtype.Date
			postedAt      pgtype.Timestamptz
			lineNo        int32
			debit, credit pgtype.Numeric
			l             usecase.ActivityLine
		)
		if err := rows.Scan(&date, &postedAt, &l.EntryID, &l.EntryNumber, &l.Narration, &l.Description, &lineNo, &debit, &credit); err != nil {
			return nil, err
		}
		l.EntryDate = date.Time
		l.PostedAt = postedAt.Time
		l.LineNo = int(lineNo)
		l.Debit = numericToDecimal(debit)
		l.Credit = numericToDecimal(credit)
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

// PostedTotals sums every posted line of the scope.
func (r *BalanceRepository) PostedTotals(ctx context.Context, tx usecase.Transaction, scopeID string) (domain.Totals, error) {
	row := querier(r.db, tx).QueryRow(ctx, `
		SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)`+postedLines+`
		  AND e.scope_id = $1`,
		scopeID)

	return scanTotals(row)
}

func scanTotals(row pgx.Row) (domain.Totals, error) {
	var debit, credit pgtype.Numeric
	if err := row.Scan(&debit, &credit); err != nil {
		return domain.Totals{}, err
	}
	return domain.Totals{Debit: numericToDecimal(debit), Credit: numericToDecimal(credit)}, nil
}

func collectTotals(rows pgx.Rows) (map[string]domain.Totals, error) {
	defer rows.Close()

	totals := make(map[string]domain.Totals)
	for rows.Next() {
		var (
			accountID     string
			debit, credit pgtype.Numeric
		)
		if err := rows.Scan(&accountID, &debit, &credit); err != nil {
			return nil, err
		}
		totals[accountID] = domain.Totals{Debit: numericToDecimal(debit), Credit: numericToDecimal(credit)}
	}

	return totals, rows.Err()
}
