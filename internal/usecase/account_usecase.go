package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/orgledger/internal/domain"
)

// AccountUseCase maintains the chart of accounts.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	auditRepo   AuditRepository
	idGen       IDGenerator
	now         func() time.Time
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		idGen:       idGen,
		now:         defaultNow,
	}
}

// WithNow overrides the clock.
func (uc *AccountUseCase) WithNow(now func() time.Time) *AccountUseCase {
	uc.now = now
	return uc
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	ParentID             *string
	AllowManualEntry     *bool // defaults to true
	ScopeID              string `validate:"required"`
	Code                 string `validate:"required"`
	Name                 string `validate:"required,max=255"`
	Type                 domain.AccountType
	Subtype              domain.AccountSubtype
	Actor                string `validate:"required"`
	OpeningBalanceDebit  decimal.Decimal
	OpeningBalanceCredit decimal.Decimal
	IsSystem             bool
}

// CreateAccount validates and stores a new account.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if err := domain.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := domain.ValidateAccountName(input.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidateAccountCode(input.Code, input.Type); err != nil {
		return nil, err
	}
	if input.OpeningBalanceDebit.IsNegative() || input.OpeningBalanceCredit.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance", domain.ErrNegativeAmount)
	}

	now := uc.now()
	account := &domain.Account{
		ID:                   uc.idGen.Generate(),
		ScopeID:              input.ScopeID,
		Code:                 input.Code,
		Name:                 strings.TrimSpace(input.Name),
		Type:                 input.Type,
		Subtype:              input.Subtype,
		ParentID:             input.ParentID,
		OpeningBalanceDebit:  input.OpeningBalanceDebit,
		OpeningBalanceCredit: input.OpeningBalanceCredit,
		IsActive:             true,
		IsSystem:             input.IsSystem,
		AllowManualEntry:     input.AllowManualEntry == nil || *input.AllowManualEntry,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		existing, err := uc.accountRepo.GetByCode(ctx, tx, input.ScopeID, input.Code)
		if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCode, input.Code)
		}

		if input.ParentID != nil {
			if _, err := uc.loadParent(ctx, tx, input.ScopeID, *input.ParentID); err != nil {
				return err
			}
		}

		if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
			return err
		}

		return writeAudit(ctx, uc.auditRepo, tx, now, auditRecord{
			scopeID:      account.ScopeID,
			actor:        input.Actor,
			action:       domain.AuditActionAccountCreate,
			resourceType: domain.ResourceAccount,
			resourceID:   account.ID,
			after:        account,
		})
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("account_id", account.ID).
		Str("code", account.Code).
		Str("scope_id", account.ScopeID).
		Msg("account created")

	return account, nil
}

// UpdateAccountInput carries the fields to change. Nil pointers are left
// untouched. Code is accepted only so that attempts to change it are refused.
type UpdateAccountInput struct {
	Code             *string
	Name             *string
	ParentID         *string
	IsActive         *bool
	Subtype          *domain.AccountSubtype
	AllowManualEntry *bool
	ClearParent      bool
	Reason           string
	Actor            string `validate:"required"`
}

func (in UpdateAccountInput) significant() bool {
	return in.Name != nil || in.ParentID != nil || in.ClearParent || in.IsActive != nil || in.Subtype != nil
}

// UpdateAccount applies input to a non-system account.
func (uc *AccountUseCase) UpdateAccount(ctx context.Context, id string, input UpdateAccountInput) (*domain.Account, error) {
	if input.Code != nil {
		return nil, domain.ErrCodeImmutable
	}
	if err := domain.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Name != nil {
		if err := domain.ValidateAccountName(*input.Name); err != nil {
			return nil, err
		}
	}

	var updated *domain.Account
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if account.IsSystem {
			return fmt.Errorf("%w: %s", domain.ErrSystemAccountLocked, account.Code)
		}
		if input.significant() && strings.TrimSpace(input.Reason) == "" {
			return domain.ErrReasonRequired
		}

		before := *account
		now := uc.now()

		if input.Name != nil {
			account.Name = strings.TrimSpace(*input.Name)
		}
		if input.Subtype != nil {
			account.Subtype = *input.Subtype
		}
		if input.IsActive != nil {
			account.IsActive = *input.IsActive
		}
		if input.AllowManualEntry != nil {
			account.AllowManualEntry = *input.AllowManualEntry
		}
		switch {
		case input.ClearParent:
			account.ParentID = nil
		case input.ParentID != nil:
			if err := uc.checkParent(ctx, tx, account, *input.ParentID); err != nil {
				return err
			}
			parentID := *input.ParentID
			account.ParentID = &parentID
		}
		account.UpdatedAt = now

		if err := uc.accountRepo.Update(ctx, tx, account); err != nil {
			return err
		}

		action := domain.AuditActionAccountUpdate
		if before.IsActive && !account.IsActive {
			action = domain.AuditActionAccountDeactivate
		}
		if err := writeAudit(ctx, uc.auditRepo, tx, now, auditRecord{
			scopeID:      account.ScopeID,
			actor:        input.Actor,
			action:       action,
			resourceType: domain.ResourceAccount,
			resourceID:   account.ID,
			reason:       input.Reason,
			before:       before,
			after:        account,
		}); err != nil {
			return err
		}

		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("account_id", updated.ID).
		Str("actor", input.Actor).
		Msg("account updated")

	return updated, nil
}

// DeactivateAccount marks an account inactive. Accounts are never deleted.
func (uc *AccountUseCase) DeactivateAccount(ctx context.Context, id, actor, reason string) (*domain.Account, error) {
	inactive := false
	return uc.UpdateAccount(ctx, id, UpdateAccountInput{
		IsActive: &inactive,
		Reason:   reason,
		Actor:    actor,
	})
}

func (uc *AccountUseCase) loadParent(ctx context.Context, tx Transaction, scopeID, parentID string) (*domain.Account, error) {
	parent, err := uc.accountRepo.GetByID(ctx, tx, parentID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrParentNotFound, parentID)
	}
	if err != nil {
		return nil, err
	}
	if parent.ScopeID != scopeID {
		return nil, fmt.Errorf("%w: %s", domain.ErrParentNotFound, parentID)
	}
	return parent, nil
}

// checkParent rejects a parent outside the scope, the account itself, or any
// of its descendants.
func (uc *AccountUseCase) checkParent(ctx context.Context, tx Transaction, account *domain.Account, parentID string) error {
	if parentID == account.ID {
		return domain.ErrCyclicParent
	}
	parent, err := uc.loadParent(ctx, tx, account.ScopeID, parentID)
	if err != nil {
		return err
	}

	seen := map[string]bool{parent.ID: true}
	for cur := parent; cur.ParentID != nil; {
		next := *cur.ParentID
		if next == account.ID {
			return domain.ErrCyclicParent
		}
		if seen[next] {
			// pre-existing cycle above us; refuse to extend it
			return domain.ErrCyclicParent
		}
		seen[next] = true
		if cur, err = uc.accountRepo.GetByID(ctx, tx, next); err != nil {
			return err
		}
	}
	return nil
}

// TreeNode is one account in a depth-first walk of the chart.
type TreeNode struct {
	Account *domain.Account
	Depth   int
}

// Tree returns the scope's accounts as a depth-first forest ordered by code.
// When rootID is set only that subtree is produced. The sequence reads from
// a snapshot taken at call time and can be ranged over repeatedly.
func (uc *AccountUseCase) Tree(ctx context.Context, scopeID string, rootID *string) (iter.Seq[TreeNode], error) {
	var accounts []*domain.Account
	err := withReadTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		var err error
		accounts, err = uc.accountRepo.ListByScope(ctx, tx, scopeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	children := make(map[string][]*domain.Account)
	var roots []*domain.Account
	for _, a := range accounts {
		if a.ParentID == nil || byID[*a.ParentID] == nil {
			roots = append(roots, a)
			continue
		}
		children[*a.ParentID] = append(children[*a.ParentID], a)
	}

	if rootID != nil {
		root, ok := byID[*rootID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, *rootID)
		}
		roots = []*domain.Account{root}
	}

	return func(yield func(TreeNode) bool) {
		var walk func(a *domain.Account, depth int) bool
		walk = func(a *domain.Account, depth int) bool {
			if !yield(TreeNode{Account: a, Depth: depth}) {
				return false
			}
			for _, c := range children[a.ID] {
				if !walk(c, depth+1) {
					return false
				}
			}
			return true
		}
		for _, r := range roots {
			if !walk(r, 0) {
				return
			}
		}
	}, nil
}
