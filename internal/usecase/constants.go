package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultClosingLockTTL bounds how long a crashed closer can hold the lock.
	DefaultClosingLockTTL = 2 * time.Minute

	// DefaultBatchConcurrency caps parallel depreciation calculations.
	DefaultBatchConcurrency = 4

	// ReferenceTypeClosing marks entries produced by period closing.
	ReferenceTypeClosing = "period_closing"

	// ReferenceTypeDepreciation marks entries produced by depreciation posting.
	ReferenceTypeDepreciation = "depreciation_schedule"
)

// DefaultMappingCodes are the account codes used when a scope has no
// explicit mapping row.
type DefaultMappingCodes struct {
	GeneralFund             string
	DepreciationExpense     string
	AccumulatedDepreciation string
}

// StandardMappingCodes returns the stock chart codes.
func StandardMappingCodes() DefaultMappingCodes {
	return DefaultMappingCodes{
		GeneralFund:             "31001",
		DepreciationExpense:     "51001",
		AccumulatedDepreciation: "12901",
	}
}
