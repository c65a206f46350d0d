package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/orgledger/internal/infrastructure/postgres/generated"
	"github.com/iho/orgledger/internal/usecase"
)

// querier returns the connection of tx, or db when tx is nil.
func querier(db generated.DBTX, tx usecase.Transaction) generated.DBTX {
	if t, ok := tx.(*Tx); ok && t != nil {
		return t.PgxTx()
	}
	return db
}

func queries(db generated.DBTX, tx usecase.Transaction) *generated.Queries {
	return generated.New(querier(db, tx))
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func optionalNumeric(d *decimal.Decimal) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{}
	}
	return decimalToNumeric(*d)
}

func numericPtr(n pgtype.Numeric) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := numericToDecimal(n)
	return &d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return timeToPgTimestamptz(*t)
}

func timestamptzPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func dateToPgDate(t time.Time) pgtype.Date {
	y, m, d := t.Date()
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func optionalText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

var (
	_ usecase.AccountRepository  = (*AccountRepository)(nil)
	_ usecase.JournalRepository  = (*JournalRepository)(nil)
	_ usecase.SequenceRepository = (*SequenceRepository)(nil)
	_ usecase.BalanceRepository  = (*BalanceRepository)(nil)
	_ usecase.AssetRepository    = (*AssetRepository)(nil)
	_ usecase.ScheduleRepository = (*ScheduleRepository)(nil)
	_ usecase.PeriodRepository   = (*PeriodRepository)(nil)
	_ usecase.MappingRepository  = (*MappingRepository)(nil)
	_ usecase.OutboxRepository   = (*OutboxRepository)(nil)
	_ usecase.AuditRepository    = (*AuditRepository)(nil)
	_ usecase.TransactionManager = (*TxManager)(nil)
	_ usecase.Retrier            = (*Retrier)(nil)
	_ usecase.IDGenerator        = (*ULIDGenerator)(nil)
)
