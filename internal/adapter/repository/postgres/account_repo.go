package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/infrastructure/postgres/generated"
	"github.com/iho/orgledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db generated.DBTX
}

// NewAccountRepository creates a new AccountRepository. db is usually a
// *pgxpool.Pool.
func NewAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	err := queries(r.db, tx).CreateAccount(ctx, generated.CreateAccountParams{
		ID:                   account.ID,
		ScopeID:              account.ScopeID,
		Code:                 account.Code,
		Name:                 account.Name,
		AccountType:          string(account.Type),
		Subtype:              string(account.Subtype),
		ParentID:             optionalText(account.ParentID),
		OpeningBalanceDebit:  decimalToNumeric(account.OpeningBalanceDebit),
		OpeningBalanceCredit: decimalToNumeric(account.OpeningBalanceCredit),
		IsActive:             account.IsActive,
		IsSystem:             account.IsSystem,
		AllowManualEntry:     account.AllowManualEntry,
		CreatedAt:            timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:            timeToPgTimestamptz(account.UpdatedAt),
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCode, account.Code)
	}

	return err
}

// Update writes the mutable fields of an account. Code and type never
// change.
func (r *AccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	return queries(r.db, tx).UpdateAccount(ctx, generated.UpdateAccountParams{
		ID:                   account.ID,
		Name:                 account.Name,
		Subtype:              string(account.Subtype),
		ParentID:             optionalText(account.ParentID),
		OpeningBalanceDebit:  decimalToNumeric(account.OpeningBalanceDebit),
		OpeningBalanceCredit: decimalToNumeric(account.OpeningBalanceCredit),
		IsActive:             account.IsActive,
		AllowManualEntry:     account.AllowManualEntry,
		UpdatedAt:            timeToPgTimestamptz(account.UpdatedAt),
	})
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	row, err := queries(r.db, tx).GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByIDForUpdate retrieves an account by ID with a FOR UPDATE lock.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	row, err := queries(r.db, tx).GetAccountByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByCode retrieves an account by its code within a scope.
func (r *AccountRepository) GetByCode(ctx context.Context, tx usecase.Transaction, scopeID, code string) (*domain.Account, error) {
	row, err := queries(r.db, tx).GetAccountByCode(ctx, generated.GetAccountByCodeParams{
		ScopeID: scopeID,
		Code:    code,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, code)
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByIDs retrieves accounts by IDs. Missing IDs are skipped.
func (r *AccountRepository) GetByIDs(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	rows, err := queries(r.db, tx).GetAccountsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	return rowsToAccounts(rows), nil
}

// ListByScope returns the chart of accounts ordered by code.
func (r *AccountRepository) ListByScope(ctx context.Context, tx usecase.Transaction, scopeID string) ([]*domain.Account, error) {
	rows, err := queries(r.db, tx).ListAccountsByScope(ctx, scopeID)
	if err != nil {
		return nil, err
	}

	return rowsToAccounts(rows), nil
}

func rowsToAccounts(rows []generated.Account) []*domain.Account {
	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}
	return accounts
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:                   row.ID,
		ScopeID:              row.ScopeID,
		Code:                 row.Code,
		Name:                 row.Name,
		Type:                 domain.AccountType(row.AccountType),
		Subtype:              domain.AccountSubtype(row.Subtype),
		ParentID:             textPtr(row.ParentID),
		OpeningBalanceDebit:  numericToDecimal(row.OpeningBalanceDebit),
		OpeningBalanceCredit: numericToDecimal(row.OpeningBalanceCredit),
		IsActive:             row.IsActive,
		IsSystem:             row.IsSystem,
		AllowManualEntry:     row.AllowManualEntry,
		CreatedAt:            row.CreatedAt.Time,
		UpdatedAt:            row.UpdatedAt.Time,
	}
}
