package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/usecase"
	"github.com/iho/orgledger/internal/usecase/mocks"
)

const (
	testScope = "scope-1"
	testActor = "alice"
)

var testNow = time.Date(2025, 5, 2, 9, 30, 0, 0, time.UTC)

type harness struct {
	store    *mocks.Store
	idGen    *mocks.MockIDGenerator
	retrier  *mocks.MockRetrier
	accounts *usecase.AccountUseCase
	journal  *usecase.JournalUseCase
	balances *usecase.BalanceUseCase
	mappings *usecase.MappingUseCase
	deprec   *usecase.DepreciationUseCase
	closing  *usecase.ClosingUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s := mocks.NewStore()
	idGen := mocks.NewMockIDGenerator()
	retrier := mocks.NewMockRetrier()
	now := func() time.Time { return testNow }

	journal := usecase.NewJournalUseCase(s.TxManager, s.Accounts, s.Journals, s.Sequences, s.Periods, s.Audit, s.Outbox, retrier, idGen).
		WithNow(now)
	mappings := usecase.NewMappingUseCase(s.TxManager, s.Mappings, s.Accounts, usecase.StandardMappingCodes())

	return &harness{
		store:    s,
		idGen:    idGen,
		retrier:  retrier,
		accounts: usecase.NewAccountUseCase(s.TxManager, s.Accounts, s.Audit, idGen).WithNow(now),
		journal:  journal,
		balances: usecase.NewBalanceUseCase(s.TxManager, s.Accounts, s.Balances),
		mappings: mappings,
		deprec: usecase.NewDepreciationUseCase(s.TxManager, s.Assets, s.Schedules, s.Periods, journal, mappings, s.Audit, s.Outbox, retrier, idGen).
			WithNow(now),
		closing: usecase.NewClosingUseCase(s.TxManager, s.Accounts, s.Balances, s.Periods, journal, mappings, s.Audit, s.Outbox, nil, retrier, idGen).
			WithNow(now),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (h *harness) account(t *testing.T, code, name string) *domain.Account {
	t.Helper()
	typ, err := domain.TypeFromCode(code)
	if err != nil {
		t.Fatalf("bad fixture code %s: %v", code, err)
	}
	acc, err := h.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{
		ScopeID: testScope,
		Code:    code,
		Name:    name,
		Type:    typ,
		Actor:   testActor,
	})
	if err != nil {
		t.Fatalf("create account %s: %v", code, err)
	}
	return acc
}

func debit(accountID, amount string) usecase.EntryLineInput {
	return usecase.EntryLineInput{AccountID: accountID, Debit: dec(amount), Credit: decimal.Zero}
}

func credit(accountID, amount string) usecase.EntryLineInput {
	return usecase.EntryLineInput{AccountID: accountID, Debit: decimal.Zero, Credit: dec(amount)}
}

// post creates and posts an entry dated on.
func (h *harness) post(t *testing.T, on time.Time, lines ...usecase.EntryLineInput) *domain.JournalEntry {
	t.Helper()
	ctx := context.Background()
	entry, err := h.journal.CreateEntry(ctx, usecase.CreateEntryInput{
		EntryDate: on,
		ScopeID:   testScope,
		Narration: "fixture",
		Actor:     testActor,
		Lines:     lines,
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	entry, err = h.journal.PostEntry(ctx, entry.ID, testActor)
	if err != nil {
		t.Fatalf("post entry: %v", err)
	}
	return entry
}

func (h *harness) year(t *testing.T) *domain.FinancialYear {
	t.Helper()
	y := &domain.FinancialYear{
		ID:        "fy-2025",
		ScopeID:   testScope,
		Name:      "2025-26",
		StartDate: day(2025, time.April, 1),
		EndDate:   day(2026, time.March, 31),
		IsActive:  true,
	}
	h.store.SeedYear(y)
	return y
}

func (h *harness) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	b, err := h.balances.AccountBalance(context.Background(), accountID, nil)
	if err != nil {
		t.Fatalf("balance %s: %v", accountID, err)
	}
	return b.Signed()
}
