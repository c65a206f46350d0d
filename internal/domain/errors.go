package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every specific error below wraps exactly one of them,
// so callers can branch with errors.Is(err, domain.ErrValidation) etc.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrState         = errors.New("invalid state")
	ErrConflict      = errors.New("conflict")
	ErrConfiguration = errors.New("configuration missing")
)

var (
	// Account errors
	ErrInvalidCode         = fmt.Errorf("%w: invalid account code", ErrValidation)
	ErrInvalidAccountType  = fmt.Errorf("%w: invalid account type", ErrValidation)
	ErrCodeImmutable       = fmt.Errorf("%w: account code cannot be changed", ErrValidation)
	ErrReasonRequired      = fmt.Errorf("%w: reason is required", ErrValidation)
	ErrCyclicParent        = fmt.Errorf("%w: parent would create a cycle", ErrValidation)
	ErrParentNotFound      = fmt.Errorf("%w: parent account not found", ErrNotFound)
	ErrAccountNotFound     = fmt.Errorf("%w: account not found", ErrNotFound)
	ErrDuplicateCode       = fmt.Errorf("%w: account code already exists", ErrConflict)
	ErrSystemAccountLocked = fmt.Errorf("%w: system account cannot be modified", ErrState)
	ErrAccountInactive     = fmt.Errorf("%w: account is inactive", ErrValidation)
	ErrManualEntryDenied   = fmt.Errorf("%w: account does not allow manual entries", ErrValidation)

	// Journal errors
	ErrTooFewLines       = fmt.Errorf("%w: journal entry requires at least two lines", ErrValidation)
	ErrNegativeAmount    = fmt.Errorf("%w: line amounts must not be negative", ErrValidation)
	ErrOneSidedLine      = fmt.Errorf("%w: line must have exactly one of debit or credit", ErrValidation)
	ErrAmountScale       = fmt.Errorf("%w: amount has more than 4 decimal places", ErrValidation)
	ErrUnbalanced        = fmt.Errorf("%w: debits do not equal credits", ErrValidation)
	ErrEntryNotFound     = fmt.Errorf("%w: journal entry not found", ErrNotFound)
	ErrInvalidTransition = fmt.Errorf("%w: invalid journal status transition", ErrState)
	ErrPeriodLocked      = fmt.Errorf("%w: entry date falls in a locked period", ErrState)
	ErrSequenceConflict  = fmt.Errorf("%w: entry number already allocated", ErrConflict)

	// Depreciation errors
	ErrAssetNotFound         = fmt.Errorf("%w: asset not found", ErrNotFound)
	ErrScheduleNotFound      = fmt.Errorf("%w: depreciation schedule not found", ErrNotFound)
	ErrNotDepreciable        = fmt.Errorf("%w: asset is not depreciable", ErrValidation)
	ErrAssetNotActive        = fmt.Errorf("%w: asset is not active", ErrState)
	ErrMissingParameter      = fmt.Errorf("%w: missing depreciation parameter", ErrValidation)
	ErrUnknownMethod         = fmt.Errorf("%w: unknown depreciation method", ErrValidation)
	ErrDuplicatePeriod       = fmt.Errorf("%w: depreciation already calculated for period", ErrConflict)
	ErrScheduleAlreadyPosted = fmt.Errorf("%w: depreciation schedule already posted", ErrState)
	ErrScheduleNotCalculated = fmt.Errorf("%w: depreciation schedule is not in calculated state", ErrState)
	ErrStaleSchedule         = fmt.Errorf("%w: asset book value changed since the schedule was calculated", ErrState)

	// Period errors
	ErrYearNotFound        = fmt.Errorf("%w: financial year not found", ErrNotFound)
	ErrYearClosed          = fmt.Errorf("%w: financial year is closed", ErrState)
	ErrPeriodAlreadyClosed = fmt.Errorf("%w: financial period is already closed", ErrState)
	ErrDateOutsideYear     = fmt.Errorf("%w: date is outside the financial year", ErrValidation)
	ErrClosingInProgress   = fmt.Errorf("%w: closing already in progress", ErrConflict)

	// Configuration
	ErrMappingNotFound = fmt.Errorf("%w: account mapping not found", ErrNotFound)
)

// MissingAccountError reports a mapped account that does not exist in the
// scope's chart of accounts. Operators fix it by creating Code.
type MissingAccountError struct {
	Key  MappingKey
	Code string
}

func (e *MissingAccountError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: no account mapped for %q", ErrConfiguration, e.Key)
	}
	return fmt.Sprintf("%s: account %s (%s) does not exist", ErrConfiguration, e.Code, e.Key)
}

func (e *MissingAccountError) Unwrap() error {
	return ErrConfiguration
}
