package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceSide is the column a balance is reported in.
type BalanceSide string

const (
	BalanceSideDebit  BalanceSide = "debit"
	BalanceSideCredit BalanceSide = "credit"
)

// Totals accumulates debit and credit amounts.
type Totals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Add returns the sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{Debit: t.Debit.Add(o.Debit), Credit: t.Credit.Add(o.Credit)}
}

// Net returns debit minus credit.
func (t Totals) Net() decimal.Decimal {
	return t.Debit.Sub(t.Credit)
}

// Balance is the result of an account balance query.
type Balance struct {
	AccountID   string
	AsOf        *time.Time
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Balance     decimal.Decimal
	BalanceType BalanceSide
}

// NewBalance builds a Balance from accumulated totals. The balance is the
// absolute difference, reported on the debit side when debits dominate or tie.
func NewBalance(accountID string, asOf *time.Time, t Totals) *Balance {
	b := &Balance{
		AccountID:   accountID,
		AsOf:        asOf,
		TotalDebit:  t.Debit,
		TotalCredit: t.Credit,
		Balance:     t.Net().Abs(),
		BalanceType: BalanceSideDebit,
	}
	if t.Debit.LessThan(t.Credit) {
		b.BalanceType = BalanceSideCredit
	}
	return b
}

// Signed returns the balance with debit positive.
func (b *Balance) Signed() decimal.Decimal {
	if b.BalanceType == BalanceSideCredit {
		return b.Balance.Neg()
	}
	return b.Balance
}

// TrialBalanceRow is one account line of a trial balance.
type TrialBalanceRow struct {
	AccountID string
	Code      string
	Name      string
	Type      AccountType
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// TrialBalance lists every account's net balance in debit/credit columns.
type TrialBalance struct {
	ScopeID      string
	AsOf         time.Time
	Rows         []TrialBalanceRow
	TotalDebits  decimal.Decimal
	TotalCredits decimal.Decimal
	IsBalanced   bool
}

// BuildTrialBalance buckets each account's net balance into the debit or
// credit column. accounts must be ordered; zero balances are omitted.
func BuildTrialBalance(scopeID string, asOf time.Time, accounts []*Account, activity map[string]Totals) *TrialBalance {
	tb := &TrialBalance{
		ScopeID:      scopeID,
		AsOf:         asOf,
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}
	for _, acc := range accounts {
		net := acc.OpeningNet().Add(activity[acc.ID].Net())
		if net.IsZero() {
			continue
		}
		row := TrialBalanceRow{
			AccountID: acc.ID,
			Code:      acc.Code,
			Name:      acc.Name,
			Type:      acc.Type,
			Debit:     decimal.Zero,
			Credit:    decimal.Zero,
		}
		if net.IsPositive() {
			row.Debit = net
			tb.TotalDebits = tb.TotalDebits.Add(net)
		} else {
			row.Credit = net.Neg()
			tb.TotalCredits = tb.TotalCredits.Add(row.Credit)
		}
		tb.Rows = append(tb.Rows, row)
	}
	tb.IsBalanced = WithinTolerance(tb.TotalDebits, tb.TotalCredits)
	return tb
}
