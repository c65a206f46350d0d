package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountCodeLength is the fixed width of every chart-of-accounts code.
const AccountCodeLength = 5

// AccountType is the accounting class of an account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// classByDigit maps the leading digit of a code to its account class.
var classByDigit = map[byte]AccountType{
	'1': AccountTypeAsset,
	'2': AccountTypeLiability,
	'3': AccountTypeEquity,
	'4': AccountTypeIncome,
	'5': AccountTypeExpense,
}

// IsValid reports whether t is one of the five account classes.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// NormalSide returns the side on which the account type naturally carries
// its balance.
func (t AccountType) NormalSide() BalanceSide {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return BalanceSideDebit
	default:
		return BalanceSideCredit
	}
}

// AccountSubtype refines an account within its class.
type AccountSubtype string

const (
	SubtypeNone                    AccountSubtype = ""
	SubtypeCashBank                AccountSubtype = "CASH_BANK"
	SubtypeReceivable              AccountSubtype = "RECEIVABLE"
	SubtypeInventory               AccountSubtype = "INVENTORY"
	SubtypeFixedAsset              AccountSubtype = "FIXED_ASSET"
	SubtypeAccumulatedDepreciation AccountSubtype = "ACCUMULATED_DEPRECIATION"
	SubtypeCWIP                    AccountSubtype = "CWIP"
	SubtypePayable                 AccountSubtype = "PAYABLE"
	SubtypeFund                    AccountSubtype = "FUND"
)

// Account is a node in a scope's chart of accounts.
type Account struct {
	CreatedAt            time.Time
	UpdatedAt            time.Time
	ParentID             *string
	ID                   string
	ScopeID              string
	Code                 string
	Name                 string
	Type                 AccountType
	Subtype              AccountSubtype
	OpeningBalanceDebit  decimal.Decimal
	OpeningBalanceCredit decimal.Decimal
	IsActive             bool
	IsSystem             bool
	AllowManualEntry     bool
}

// OpeningNet returns the opening balance as a signed amount, debit positive.
func (a *Account) OpeningNet() decimal.Decimal {
	return a.OpeningBalanceDebit.Sub(a.OpeningBalanceCredit)
}

// ValidatePosting checks whether a journal line may target the account.
// Trusted internal callers skip the manual-entry restriction.
func (a *Account) ValidatePosting(scopeID string, trusted bool) error {
	if a.ScopeID != scopeID {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, a.Code)
	}
	if !a.IsActive {
		return fmt.Errorf("%w: %s", ErrAccountInactive, a.Code)
	}
	if !trusted && !a.AllowManualEntry {
		return fmt.Errorf("%w: %s", ErrManualEntryDenied, a.Code)
	}
	return nil
}

// ValidateSweep checks an account targeted by a closing entry. Deactivated
// income and expense accounts are still swept so their balance can reach
// the general fund.
func (a *Account) ValidateSweep(scopeID string) error {
	if !a.IsActive && a.ScopeID == scopeID &&
		(a.Type == AccountTypeIncome || a.Type == AccountTypeExpense) {
		return nil
	}
	return a.ValidatePosting(scopeID, true)
}

// TypeFromCode derives the account class from the leading digit of code.
func TypeFromCode(code string) (AccountType, error) {
	if len(code) != AccountCodeLength {
		return "", fmt.Errorf("%w: %q must be %d digits", ErrInvalidCode, code, AccountCodeLength)
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return "", fmt.Errorf("%w: %q must be numeric", ErrInvalidCode, code)
		}
	}
	t, ok := classByDigit[code[0]]
	if !ok {
		return "", fmt.Errorf("%w: %q has no account class for leading digit %c", ErrInvalidCode, code, code[0])
	}
	return t, nil
}

// ValidateAccountCode checks the code format and that its class matches t.
func ValidateAccountCode(code string, t AccountType) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccountType, t)
	}
	implied, err := TypeFromCode(code)
	if err != nil {
		return err
	}
	if implied != t {
		return fmt.Errorf("%w: code %s implies %s, got %s", ErrInvalidCode, code, implied, t)
	}
	return nil
}
