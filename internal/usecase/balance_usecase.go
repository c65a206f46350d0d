package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/orgledger/internal/domain"
)

var (
	// ErrInconsistentLedger is returned when the ledger is not balanced.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: debits do not equal credits")
)

// BalanceUseCase answers balance and report queries from posted entries.
// Every query reads a single snapshot.
type BalanceUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	balanceRepo BalanceRepository
	metrics     Metrics
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(txManager TransactionManager, accountRepo AccountRepository, balanceRepo BalanceRepository) *BalanceUseCase {
	return &BalanceUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		balanceRepo: balanceRepo,
		metrics:     nopMetrics{},
	}
}

// WithMetrics attaches a metrics sink.
func (uc *BalanceUseCase) WithMetrics(m Metrics) *BalanceUseCase {
	if m != nil {
		uc.metrics = m
	}
	return uc
}

// AccountBalance sums the account's opening balance and posted lines dated
// on or before asOf (all lines when asOf is nil).
func (uc *BalanceUseCase) AccountBalance(ctx context.Context, accountID string, asOf *time.Time) (*domain.Balance, error) {
	defer uc.observe("account_balance", time.Now())

	var balance *domain.Balance
	err := withReadTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		account, err := uc.accountRepo.GetByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if asOf != nil {
			d := domain.DateOnly(*asOf)
			asOf = &d
		}
		activity, err := uc.balanceRepo.AccountTotals(ctx, tx, accountID, asOf)
		if err != nil {
			return err
		}
		balance = domain.NewBalance(accountID, asOf, openingTotals(account).Add(activity))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// TrialBalance lists every account's net balance as of asOf.
func (uc *BalanceUseCase) TrialBalance(ctx context.Context, scopeID string, asOf time.Time) (*domain.TrialBalance, error) {
	defer uc.observe("trial_balance", time.Now())

	asOf = domain.DateOnly(asOf)
	var tb *domain.TrialBalance
	err := withReadTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		accounts, err := uc.accountRepo.ListByScope(ctx, tx, scopeID)
		if err != nil {
			return err
		}
		activity, err := uc.balanceRepo.ScopeTotals(ctx, tx, scopeID, asOf)
		if err != nil {
			return err
		}
		tb = domain.BuildTrialBalance(scopeID, asOf, accounts, activity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tb, nil
}

// StatementLine is a posted line with the account's running balance after
// it, debit positive.
type StatementLine struct {
	ActivityLine
	RunningBalance decimal.Decimal
}

// Statement is an account ledger for a date range.
type Statement struct {
	Account        *domain.Account
	From           time.Time
	To             time.Time
	OpeningBalance decimal.Decimal
	lines          []ActivityLine
}

// Lines yields the statement lines in order with a running balance. The
// sequence is finite and can be ranged over again.
func (s *Statement) Lines() iter.Seq[StatementLine] {
	return func(yield func(StatementLine) bool) {
		running := s.OpeningBalance
		for _, l := range s.lines {
			running = running.Add(l.Debit).Sub(l.Credit)
			if !yield(StatementLine{ActivityLine: l, RunningBalance: running}) {
				return
			}
		}
	}
}

// ClosingBalance is the running balance after the last line.
func (s *Statement) ClosingBalance() decimal.Decimal {
	closing := s.OpeningBalance
	for _, l := range s.lines {
		closing = closing.Add(l.Debit).Sub(l.Credit)
	}
	return closing
}

// Len returns the number of lines.
func (s *Statement) Len() int {
	return len(s.lines)
}

// LedgerStatement returns the account's posted lines in [from, to]. The
// opening balance includes the account's opening balance and every posted
// line dated before from. A zero from starts at the beginning of the ledger.
func (uc *BalanceUseCase) LedgerStatement(ctx context.Context, accountID string, from, to time.Time) (*Statement, error) {
	defer uc.observe("ledger_statement", time.Now())

	if !from.IsZero() {
		from = domain.DateOnly(from)
	}
	to = domain.DateOnly(to)
	if !from.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: statement range ends before it starts", domain.ErrValidation)
	}

	stmt := &Statement{From: from, To: to}
	err := withReadTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		account, err := uc.accountRepo.GetByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		stmt.Account = account

		opening := openingTotals(account)
		if !from.IsZero() {
			before, err := uc.balanceRepo.AccountTotalsBefore(ctx, tx, accountID, from)
			if err != nil {
				return err
			}
			opening = opening.Add(before)
		}
		stmt.OpeningBalance = opening.Net()

		stmt.lines, err = uc.balanceRepo.StatementLines(ctx, tx, accountID, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

// CheckConsistency verifies that posted debits equal posted credits across
// the scope.
func (uc *BalanceUseCase) CheckConsistency(ctx context.Context, scopeID string) (bool, error) {
	var totals domain.Totals
	err := withReadTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		var err error
		totals, err = uc.balanceRepo.PostedTotals(ctx, tx, scopeID)
		return err
	})
	if err != nil {
		return false, err
	}

	if !domain.WithinTolerance(totals.Debit, totals.Credit) {
		return false, fmt.Errorf("%w: debit=%s credit=%s", ErrInconsistentLedger,
			totals.Debit.StringFixed(2), totals.Credit.StringFixed(2))
	}
	return true, nil
}

func (uc *BalanceUseCase) observe(report string, start time.Time) {
	uc.metrics.ObserveReport(report, time.Since(start))
}

func openingTotals(a *domain.Account) domain.Totals {
	return domain.Totals{Debit: a.OpeningBalanceDebit, Credit: a.OpeningBalanceCredit}
}
