package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceTolerance is the largest debit/credit difference still treated as
// balanced.
var BalanceTolerance = decimal.New(1, -2)

// Entry number prefixes.
const (
	PrefixJournal      = "JE"
	PrefixDepreciation = "DEP"
	PrefixClosing      = "CLS"
)

// EntryStatus is the lifecycle state of a journal entry.
type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "DRAFT"
	EntryStatusPosted    EntryStatus = "POSTED"
	EntryStatusCancelled EntryStatus = "CANCELLED"
)

// Reference points back at the business object that produced an entry.
// The ledger stores it without interpreting it.
type Reference struct {
	Type string
	ID   string
}

// JournalEntry is a balanced set of debit and credit lines.
type JournalEntry struct {
	EntryDate    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PostedAt     *time.Time
	CancelledAt  *time.Time
	Reference    *Reference
	ID           string
	ScopeID      string
	EntryNumber  string
	Narration    string
	CreatedBy    string
	PostedBy     string
	CancelledBy  string
	CancelReason string
	Status       EntryStatus
	TotalAmount  decimal.Decimal
	Lines        []JournalLine
}

// JournalLine is one debit or credit against an account.
type JournalLine struct {
	ID          string
	EntryID     string
	AccountID   string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	LineNo      int
}

// FormatEntryNumber renders a sequence value as PREFIX/YYYY/NNNN.
func FormatEntryNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s/%d/%04d", strings.ToUpper(prefix), year, seq)
}

// WithinTolerance reports whether a and b differ by at most BalanceTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(BalanceTolerance)
}

// LineTotals sums the debit and credit columns of lines.
func LineTotals(lines []JournalLine) Totals {
	t := Totals{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, l := range lines {
		t.Debit = t.Debit.Add(l.Debit)
		t.Credit = t.Credit.Add(l.Credit)
	}
	return t
}

// MaxAmountScale is the number of decimal places stored for line amounts.
const MaxAmountScale = 4

// ValidateLines enforces the double-entry invariant on a set of lines.
func ValidateLines(lines []JournalLine) error {
	if len(lines) < 2 {
		return ErrTooFewLines
	}
	for i, l := range lines {
		if l.AccountID == "" {
			return fmt.Errorf("%w: line %d missing account", ErrValidation, i+1)
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return fmt.Errorf("%w: line %d", ErrNegativeAmount, i+1)
		}
		if l.Debit.IsZero() == l.Credit.IsZero() {
			return fmt.Errorf("%w: line %d", ErrOneSidedLine, i+1)
		}
		if !l.Debit.Equal(l.Debit.Truncate(MaxAmountScale)) || !l.Credit.Equal(l.Credit.Truncate(MaxAmountScale)) {
			return fmt.Errorf("%w: line %d", ErrAmountScale, i+1)
		}
	}
	t := LineTotals(lines)
	if !WithinTolerance(t.Debit, t.Credit) {
		return fmt.Errorf("%w: debit=%s credit=%s", ErrUnbalanced, t.Debit.StringFixed(2), t.Credit.StringFixed(2))
	}
	return nil
}

// Validate checks the entry's lines and recomputes TotalAmount.
func (e *JournalEntry) Validate() error {
	if err := ValidateLines(e.Lines); err != nil {
		return err
	}
	e.TotalAmount = LineTotals(e.Lines).Debit
	return nil
}

// Post moves a DRAFT entry to POSTED.
func (e *JournalEntry) Post(actor string, at time.Time) error {
	if e.Status != EntryStatusDraft {
		return fmt.Errorf("%w: cannot post %s entry", ErrInvalidTransition, e.Status)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	e.Status = EntryStatusPosted
	e.PostedBy = actor
	e.PostedAt = &at
	e.UpdatedAt = at
	return nil
}

// Cancel moves a POSTED entry to CANCELLED. The entry stops counting towards
// balances; no reversing entry is produced.
func (e *JournalEntry) Cancel(actor, reason string, at time.Time) error {
	if e.Status != EntryStatusPosted {
		return fmt.Errorf("%w: cannot cancel %s entry", ErrInvalidTransition, e.Status)
	}
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	e.Status = EntryStatusCancelled
	e.CancelledBy = actor
	e.CancelledAt = &at
	e.CancelReason = reason
	e.UpdatedAt = at
	return nil
}

// AccountIDs returns the distinct account IDs referenced by the lines.
func (e *JournalEntry) AccountIDs() []string {
	seen := make(map[string]bool, len(e.Lines))
	var ids []string
	for _, l := range e.Lines {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			ids = append(ids, l.AccountID)
		}
	}
	return ids
}
