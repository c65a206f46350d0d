package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DepreciationMethod selects the formula used for an asset.
type DepreciationMethod string

const (
	MethodStraightLine      DepreciationMethod = "straight_line"
	MethodWDV               DepreciationMethod = "wdv"
	MethodDoubleDeclining   DepreciationMethod = "double_declining"
	MethodDecliningBalance  DepreciationMethod = "declining_balance"
	MethodUnitsOfProduction DepreciationMethod = "units_of_production"
	MethodAnnuity           DepreciationMethod = "annuity"
	MethodDepletion         DepreciationMethod = "depletion"
	MethodSinkingFund       DepreciationMethod = "sinking_fund"
	MethodNone              DepreciationMethod = "none"
)

const defaultCompoundingPerYear = 1

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// DepreciationInput carries every parameter any method may need. Each
// method reads only its own fields.
type DepreciationInput struct {
	UnitsThisPeriod     *decimal.Decimal
	Cost                decimal.Decimal
	SalvageValue        decimal.Decimal
	OpeningBookValue    decimal.Decimal
	PeriodYears         decimal.Decimal
	Rate                decimal.Decimal // percent per year
	TotalEstimatedUnits decimal.Decimal
	InterestRate        decimal.Decimal // percent per year
	UsefulLifeYears     int
	CompoundingPerYear  int
}

func (in DepreciationInput) depreciableBase() decimal.Decimal {
	return in.Cost.Sub(in.SalvageValue)
}

// DepreciationResult is the outcome of one period's calculation.
type DepreciationResult struct {
	OpeningBookValue   decimal.Decimal
	Depreciation       decimal.Decimal
	ClosingBookValue   decimal.Decimal
	Rate               decimal.Decimal
	InterestComponent  decimal.Decimal
	PrincipalComponent decimal.Decimal
}

type methodSpec struct {
	compute func(DepreciationInput) (DepreciationResult, error)
	// capToBookValue limits the charge to opening book value less salvage
	// before the global salvage clamp.
	capToBookValue bool
}

var methodTable = map[DepreciationMethod]methodSpec{
	MethodStraightLine:      {compute: straightLine},
	MethodWDV:               {compute: writtenDownValue, capToBookValue: true},
	MethodDoubleDeclining:   {compute: doubleDeclining, capToBookValue: true},
	MethodDecliningBalance:  {compute: writtenDownValue, capToBookValue: true},
	MethodUnitsOfProduction: {compute: unitsOfProduction},
	MethodDepletion:         {compute: unitsOfProduction},
	MethodAnnuity:           {compute: annuity},
	MethodSinkingFund:       {compute: sinkingFund},
	MethodNone:              {compute: noDepreciation},
}

// IsValid reports whether m has a formula.
func (m DepreciationMethod) IsValid() bool {
	_, ok := methodTable[m]
	return ok
}

// ComputeDepreciation runs the formula for method and applies the salvage
// guard rails. Closing book value never drops below salvage value.
func ComputeDepreciation(method DepreciationMethod, in DepreciationInput) (DepreciationResult, error) {
	rule, ok := methodTable[method]
	if !ok {
		return DepreciationResult{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if method != MethodNone && !in.PeriodYears.IsPositive() {
		return DepreciationResult{}, fmt.Errorf("%w: period_years", ErrMissingParameter)
	}

	res, err := rule.compute(in)
	if err != nil {
		return DepreciationResult{}, err
	}

	dep := res.Depreciation.Round(2)
	if dep.IsNegative() {
		dep = decimal.Zero
	}

	headroom := in.OpeningBookValue.Sub(in.SalvageValue)
	if headroom.IsNegative() {
		headroom = decimal.Zero
	}
	if rule.capToBookValue && dep.GreaterThan(headroom) {
		dep = headroom
	}
	if in.OpeningBookValue.Sub(dep).LessThan(in.SalvageValue) {
		dep = headroom
	}

	res.OpeningBookValue = in.OpeningBookValue
	res.Depreciation = dep
	res.ClosingBookValue = in.OpeningBookValue.Sub(dep)
	if method == MethodAnnuity {
		res.PrincipalComponent = dep
	}
	return res, nil
}

func requireLife(in DepreciationInput) error {
	if in.UsefulLifeYears <= 0 {
		return fmt.Errorf("%w: useful_life_years", ErrMissingParameter)
	}
	return nil
}

// (cost - salvage) / life * period_years
func straightLine(in DepreciationInput) (DepreciationResult, error) {
	if err := requireLife(in); err != nil {
		return DepreciationResult{}, err
	}
	life := decimal.NewFromInt(int64(in.UsefulLifeYears))
	return DepreciationResult{
		Depreciation: in.depreciableBase().Div(life).Mul(in.PeriodYears),
		Rate:         hundred.Div(life).Round(4),
	}, nil
}

// opening * rate% * period_years; used by wdv and declining_balance with
// independently configured rates.
func writtenDownValue(in DepreciationInput) (DepreciationResult, error) {
	if !in.Rate.IsPositive() {
		return DepreciationResult{}, fmt.Errorf("%w: rate", ErrMissingParameter)
	}
	return DepreciationResult{
		Depreciation: in.OpeningBookValue.Mul(in.Rate).Div(hundred).Mul(in.PeriodYears),
		Rate:         in.Rate,
	}, nil
}

// opening * (2 * 100 / life)% * period_years
func doubleDeclining(in DepreciationInput) (DepreciationResult, error) {
	if err := requireLife(in); err != nil {
		return DepreciationResult{}, err
	}
	rate := decimal.NewFromInt(200).Div(decimal.NewFromInt(int64(in.UsefulLifeYears)))
	return DepreciationResult{
		Depreciation: in.OpeningBookValue.Mul(rate).Div(hundred).Mul(in.PeriodYears),
		Rate:         rate.Round(4),
	}, nil
}

// (cost - salvage) / total_units * units_this_period; also depletion.
func unitsOfProduction(in DepreciationInput) (DepreciationResult, error) {
	if !in.TotalEstimatedUnits.IsPositive() {
		return DepreciationResult{}, fmt.Errorf("%w: total_estimated_units", ErrMissingParameter)
	}
	if in.UnitsThisPeriod == nil {
		return DepreciationResult{}, fmt.Errorf("%w: units_produced", ErrMissingParameter)
	}
	if in.UnitsThisPeriod.IsNegative() {
		return DepreciationResult{}, fmt.Errorf("%w: units_produced must not be negative", ErrValidation)
	}
	perUnit := in.depreciableBase().Div(in.TotalEstimatedUnits)
	return DepreciationResult{
		Depreciation: perUnit.Mul(*in.UnitsThisPeriod),
		Rate:         perUnit.Round(4),
	}, nil
}

// factor = i(1+i)^n / ((1+i)^n - 1)
// depreciation = factor*(cost-salvage)*py - opening*i*py, floored at zero.
func annuity(in DepreciationInput) (DepreciationResult, error) {
	if err := requireLife(in); err != nil {
		return DepreciationResult{}, err
	}
	if !in.InterestRate.IsPositive() {
		return DepreciationResult{}, fmt.Errorf("%w: interest_rate", ErrMissingParameter)
	}
	i := in.InterestRate.Div(hundred)
	growth := one.Add(i).Pow(decimal.NewFromInt(int64(in.UsefulLifeYears)))
	factor := i.Mul(growth).Div(growth.Sub(one))

	payment := factor.Mul(in.depreciableBase()).Mul(in.PeriodYears)
	interest := in.OpeningBookValue.Mul(i).Mul(in.PeriodYears)
	dep := payment.Sub(interest)
	if dep.IsNegative() {
		dep = decimal.Zero
	}
	return DepreciationResult{
		Depreciation:      dep,
		Rate:              in.InterestRate,
		InterestComponent: interest.Round(2),
	}, nil
}

// factor = ((1+r/m)^(n*m) - 1) / (r/m); contribution = (cost-salvage)/factor,
// annualised by m. A zero rate degenerates to straight line.
func sinkingFund(in DepreciationInput) (DepreciationResult, error) {
	if err := requireLife(in); err != nil {
		return DepreciationResult{}, err
	}
	if in.InterestRate.IsZero() {
		return straightLine(in)
	}
	if in.InterestRate.IsNegative() {
		return DepreciationResult{}, fmt.Errorf("%w: interest_rate must not be negative", ErrValidation)
	}
	m := in.CompoundingPerYear
	if m <= 0 {
		m = defaultCompoundingPerYear
	}
	periodic := in.InterestRate.Div(hundred).Div(decimal.NewFromInt(int64(m)))
	periods := decimal.NewFromInt(int64(in.UsefulLifeYears * m))
	factor := one.Add(periodic).Pow(periods).Sub(one).Div(periodic)

	contribution := in.depreciableBase().Div(factor)
	annual := contribution.Mul(decimal.NewFromInt(int64(m)))
	return DepreciationResult{
		Depreciation: annual.Mul(in.PeriodYears),
		Rate:         in.InterestRate,
	}, nil
}

func noDepreciation(DepreciationInput) (DepreciationResult, error) {
	return DepreciationResult{Depreciation: decimal.Zero}, nil
}

// PeriodYears expresses [start, end] as a fraction of a year. Whole calendar
// months count as months/12; anything else as days/365.
func PeriodYears(start, end time.Time) decimal.Decimal {
	if end.Before(start) {
		return decimal.Zero
	}
	if start.Day() == 1 && end.AddDate(0, 0, 1).Day() == 1 {
		months := (end.Year()-start.Year())*12 + int(end.Month()-start.Month()) + 1
		return decimal.NewFromInt(int64(months)).Div(decimal.NewFromInt(12))
	}
	days := int64(end.Sub(start).Hours()/24) + 1
	return decimal.NewFromInt(days).Div(decimal.NewFromInt(365))
}
