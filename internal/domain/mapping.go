package domain

import "time"

// MappingKey names a role an account plays for the engine.
type MappingKey string

const (
	MappingGeneralFund             MappingKey = "general_fund"
	MappingDepreciationExpense     MappingKey = "depreciation_expense"
	MappingAccumulatedDepreciation MappingKey = "accumulated_depreciation"
)

// AccumulatedDepreciationKey returns the per-category key, falling back to
// the generic key when category is empty.
func AccumulatedDepreciationKey(category string) MappingKey {
	if category == "" {
		return MappingAccumulatedDepreciation
	}
	return MappingAccumulatedDepreciation + MappingKey(":"+category)
}

// AccountMapping binds a MappingKey to an account code within a scope.
type AccountMapping struct {
	UpdatedAt   time.Time
	ScopeID     string
	Key         MappingKey
	AccountCode string
}
