package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iho/orgledger/internal/domain"
)

// MappingUseCase resolves the accounts the engine posts to on its own
// behalf. A scope's mapping row wins; otherwise the configured default code
// is looked up in the scope's chart.
type MappingUseCase struct {
	txManager   TransactionManager
	mappingRepo MappingRepository
	accountRepo AccountRepository
	defaults    DefaultMappingCodes
	now         func() time.Time
}

// NewMappingUseCase creates a new MappingUseCase.
func NewMappingUseCase(
	txManager TransactionManager,
	mappingRepo MappingRepository,
	accountRepo AccountRepository,
	defaults DefaultMappingCodes,
) *MappingUseCase {
	return &MappingUseCase{
		txManager:   txManager,
		mappingRepo: mappingRepo,
		accountRepo: accountRepo,
		defaults:    defaults,
		now:         defaultNow,
	}
}

// Resolve returns the active account bound to key in the scope. A missing
// binding or account yields *domain.MissingAccountError.
func (uc *MappingUseCase) Resolve(ctx context.Context, tx Transaction, scopeID string, key domain.MappingKey) (*domain.Account, error) {
	code, err := uc.codeFor(ctx, tx, scopeID, key)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, &domain.MissingAccountError{Key: key}
	}

	account, err := uc.accountRepo.GetByCode(ctx, tx, scopeID, code)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, &domain.MissingAccountError{Key: key, Code: code}
	}
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: mapped account %s", domain.ErrAccountInactive, code)
	}
	return account, nil
}

func (uc *MappingUseCase) codeFor(ctx context.Context, tx Transaction, scopeID string, key domain.MappingKey) (string, error) {
	candidates := []domain.MappingKey{key}
	if strings.HasPrefix(string(key), string(domain.MappingAccumulatedDepreciation)+":") {
		candidates = append(candidates, domain.MappingAccumulatedDepreciation)
	}

	for _, k := range candidates {
		m, err := uc.mappingRepo.Get(ctx, tx, scopeID, k)
		if errors.Is(err, domain.ErrMappingNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		return m.AccountCode, nil
	}

	switch candidates[len(candidates)-1] {
	case domain.MappingGeneralFund:
		return uc.defaults.GeneralFund, nil
	case domain.MappingDepreciationExpense:
		return uc.defaults.DepreciationExpense, nil
	case domain.MappingAccumulatedDepreciation:
		return uc.defaults.AccumulatedDepreciation, nil
	}
	return "", nil
}

// SetMappingInput binds a key to an account code.
type SetMappingInput struct {
	ScopeID     string            `validate:"required"`
	Key         domain.MappingKey `validate:"required,max=128"`
	AccountCode string            `validate:"required,accountcode"`
}

// SetMapping stores a mapping after checking the account exists.
func (uc *MappingUseCase) SetMapping(ctx context.Context, input SetMappingInput) (*domain.AccountMapping, error) {
	if err := domain.ValidateStruct(input); err != nil {
		return nil, err
	}

	mapping := &domain.AccountMapping{
		ScopeID:     input.ScopeID,
		Key:         input.Key,
		AccountCode: input.AccountCode,
		UpdatedAt:   uc.now(),
	}
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		if _, err := uc.accountRepo.GetByCode(ctx, tx, input.ScopeID, input.AccountCode); err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return &domain.MissingAccountError{Key: input.Key, Code: input.AccountCode}
			}
			return err
		}
		return uc.mappingRepo.Upsert(ctx, tx, mapping)
	})
	if err != nil {
		return nil, err
	}
	return mapping, nil
}
