package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FinancialYear bounds the accounting year of a scope.
type FinancialYear struct {
	StartDate time.Time
	EndDate   time.Time
	ClosedAt  *time.Time
	ID        string
	ScopeID   string
	Name      string
	ClosedBy  string
	IsActive  bool
	IsClosed  bool
}

// Contains reports whether d falls within the year, inclusive.
func (y *FinancialYear) Contains(d time.Time) bool {
	d = DateOnly(d)
	return !d.Before(DateOnly(y.StartDate)) && !d.After(DateOnly(y.EndDate))
}

// Close marks the year closed and inactive. Closed years never reopen.
func (y *FinancialYear) Close(actor string, at time.Time) error {
	if y.IsClosed {
		return fmt.Errorf("%w: %s", ErrYearClosed, y.Name)
	}
	y.IsClosed = true
	y.IsActive = false
	y.ClosedBy = actor
	y.ClosedAt = &at
	return nil
}

// FinancialPeriod is one month of a financial year.
type FinancialPeriod struct {
	StartDate       time.Time
	EndDate         time.Time
	ClosedAt        *time.Time
	ID              string
	ScopeID         string
	FinancialYearID string
	Name            string
	IsLocked        bool
	IsClosed        bool
}

// Contains reports whether d falls within the period, inclusive.
func (p *FinancialPeriod) Contains(d time.Time) bool {
	d = DateOnly(d)
	return !d.Before(DateOnly(p.StartDate)) && !d.After(DateOnly(p.EndDate))
}

// Lock closes the period against further postings.
func (p *FinancialPeriod) Lock(at time.Time) error {
	if p.IsClosed {
		return fmt.Errorf("%w: %s", ErrPeriodAlreadyClosed, p.Name)
	}
	p.IsLocked = true
	p.IsClosed = true
	p.ClosedAt = &at
	return nil
}

// ClosingKind distinguishes month and year closings.
type ClosingKind string

const (
	ClosingKindMonth ClosingKind = "MONTH"
	ClosingKindYear  ClosingKind = "YEAR"
)

// PeriodClosing records the outcome of a month or year close.
type PeriodClosing struct {
	PeriodStart     time.Time
	PeriodEnd       time.Time
	ClosedAt        time.Time
	JournalEntryID  *string
	PeriodID        *string
	ID              string
	ScopeID         string
	FinancialYearID string
	ClosedBy        string
	Kind            ClosingKind
	TotalIncome     decimal.Decimal
	TotalExpenses   decimal.Decimal
	NetSurplus      decimal.Decimal
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthWindow returns the calendar month containing closingDate, clipped to
// the financial year.
func MonthWindow(y *FinancialYear, closingDate time.Time) (time.Time, time.Time, error) {
	if !y.Contains(closingDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s not in %s", ErrDateOutsideYear, closingDate.Format(time.DateOnly), y.Name)
	}
	d := DateOnly(closingDate)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	if fyStart := DateOnly(y.StartDate); start.Before(fyStart) {
		start = fyStart
	}
	if fyEnd := DateOnly(y.EndDate); end.After(fyEnd) {
		end = fyEnd
	}
	return start, end, nil
}
