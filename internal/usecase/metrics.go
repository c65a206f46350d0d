package usecase

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/orgledger/internal/domain"
)

// Metrics receives ledger business counters.
type Metrics interface {
	EntryCreated(prefix string)
	EntryPosted(prefix string)
	EntryCancelled()
	EntryRejected(category string)
	DepreciationPosted(method string, amount decimal.Decimal)
	PeriodClosed(kind string)
	ObserveReport(report string, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) EntryCreated(string)                        {}
func (nopMetrics) EntryPosted(string)                         {}
func (nopMetrics) EntryCancelled()                            {}
func (nopMetrics) EntryRejected(string)                       {}
func (nopMetrics) DepreciationPosted(string, decimal.Decimal) {}
func (nopMetrics) PeriodClosed(string)                        {}
func (nopMetrics) ObserveReport(string, time.Duration)        {}

// ErrorCategory maps an error to its taxonomy label.
func ErrorCategory(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrState):
		return "state"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrConfiguration):
		return "configuration"
	default:
		return "internal"
	}
}
