package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AssetStatus is maintained by the asset register; the ledger only reads it.
type AssetStatus string

const (
	AssetStatusActive            AssetStatus = "ACTIVE"
	AssetStatusUnderConstruction AssetStatus = "UNDER_CONSTRUCTION"
	AssetStatusDisposed          AssetStatus = "DISPOSED"
	AssetStatusInactive          AssetStatus = "INACTIVE"
)

// Asset is the depreciation-relevant view of a fixed asset.
type Asset struct {
	UpdatedAt               time.Time
	ID                      string
	ScopeID                 string
	Code                    string
	Name                    string
	CategoryCode            string
	Method                  DepreciationMethod
	Status                  AssetStatus
	Cost                    decimal.Decimal
	SalvageValue            decimal.Decimal
	AccumulatedDepreciation decimal.Decimal
	CurrentBookValue        decimal.Decimal
	WDVRate                 decimal.Decimal
	DecliningRate           decimal.Decimal
	TotalEstimatedUnits     decimal.Decimal
	InterestRate            decimal.Decimal
	UsefulLifeYears         int
	CompoundingPerYear      int
	IsDepreciable           bool
}

// CanDepreciate rejects non-depreciable and non-active assets.
func (a *Asset) CanDepreciate() error {
	if !a.IsDepreciable {
		return fmt.Errorf("%w: %s", ErrNotDepreciable, a.Code)
	}
	if a.Status != AssetStatusActive {
		return fmt.Errorf("%w: %s is %s", ErrAssetNotActive, a.Code, a.Status)
	}
	return nil
}

// OpeningBookValue is the book value carried into the next period.
func (a *Asset) OpeningBookValue() decimal.Decimal {
	if a.CurrentBookValue.IsZero() && a.AccumulatedDepreciation.IsZero() {
		return a.Cost
	}
	return a.CurrentBookValue
}

// DepreciationInput assembles the formula parameters for a period.
func (a *Asset) DepreciationInput(periodYears decimal.Decimal, units *decimal.Decimal) DepreciationInput {
	rate := a.WDVRate
	if a.Method == MethodDecliningBalance {
		rate = a.DecliningRate
	}
	return DepreciationInput{
		UnitsThisPeriod:     units,
		Cost:                a.Cost,
		SalvageValue:        a.SalvageValue,
		OpeningBookValue:    a.OpeningBookValue(),
		PeriodYears:         periodYears,
		Rate:                rate,
		TotalEstimatedUnits: a.TotalEstimatedUnits,
		InterestRate:        a.InterestRate,
		UsefulLifeYears:     a.UsefulLifeYears,
		CompoundingPerYear:  a.CompoundingPerYear,
	}
}

// ApplySchedule moves the running book value to the schedule's closing value.
func (a *Asset) ApplySchedule(s *DepreciationSchedule, at time.Time) {
	a.AccumulatedDepreciation = a.AccumulatedDepreciation.Add(s.DepreciationAmount)
	a.CurrentBookValue = s.ClosingBookValue
	a.UpdatedAt = at
}

// ScheduleStatus is the lifecycle state of a depreciation schedule.
type ScheduleStatus string

const (
	ScheduleStatusCalculated ScheduleStatus = "CALCULATED"
	ScheduleStatusPosted     ScheduleStatus = "POSTED"
	ScheduleStatusCancelled  ScheduleStatus = "CANCELLED"
)

// DepreciationSchedule is one period's depreciation for one asset.
type DepreciationSchedule struct {
	PeriodStart        time.Time
	PeriodEnd          time.Time
	CalculatedAt       time.Time
	PostedAt           *time.Time
	CancelledAt        *time.Time
	UnitsProduced      *decimal.Decimal
	JournalEntryID     *string
	ID                 string
	ScopeID            string
	AssetID            string
	FinancialYearID    string
	Period             string
	PostedBy           string
	Method             DepreciationMethod
	Status             ScheduleStatus
	PeriodYears        decimal.Decimal
	OpeningBookValue   decimal.Decimal
	DepreciationAmount decimal.Decimal
	ClosingBookValue   decimal.Decimal
	Rate               decimal.Decimal
	InterestComponent  decimal.Decimal
	PrincipalComponent decimal.Decimal
}

// ApplyResult copies a calculation outcome onto the schedule.
func (s *DepreciationSchedule) ApplyResult(r DepreciationResult) {
	s.OpeningBookValue = r.OpeningBookValue
	s.DepreciationAmount = r.Depreciation
	s.ClosingBookValue = r.ClosingBookValue
	s.Rate = r.Rate
	s.InterestComponent = r.InterestComponent
	s.PrincipalComponent = r.PrincipalComponent
}

// MarkPosted links the schedule to its journal entry. Only a CALCULATED
// schedule can be posted, and only once.
func (s *DepreciationSchedule) MarkPosted(entryID, actor string, at time.Time) error {
	switch s.Status {
	case ScheduleStatusCalculated:
	case ScheduleStatusPosted:
		return fmt.Errorf("%w: %s", ErrScheduleAlreadyPosted, s.ID)
	default:
		return fmt.Errorf("%w: %s is %s", ErrScheduleNotCalculated, s.ID, s.Status)
	}
	s.Status = ScheduleStatusPosted
	s.JournalEntryID = &entryID
	s.PostedBy = actor
	s.PostedAt = &at
	return nil
}

// Cancel discards a CALCULATED schedule, freeing its period key.
func (s *DepreciationSchedule) Cancel(at time.Time) error {
	if s.Status != ScheduleStatusCalculated {
		if s.Status == ScheduleStatusPosted {
			return fmt.Errorf("%w: %s", ErrScheduleAlreadyPosted, s.ID)
		}
		return fmt.Errorf("%w: %s is %s", ErrScheduleNotCalculated, s.ID, s.Status)
	}
	s.Status = ScheduleStatusCancelled
	s.CancelledAt = &at
	return nil
}
