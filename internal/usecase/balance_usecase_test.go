package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/usecase"
)

func TestBalanceUseCase_LedgerStatement(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	cash := h.account(t, "11001", "Cash")
	donations := h.account(t, "41001", "Donations")
	rent := h.account(t, "51002", "Rent")

	h.post(t, day(2025, time.April, 5), debit(cash.ID, "1000"), credit(donations.ID, "1000"))
	h.post(t, day(2025, time.May, 3), debit(rent.ID, "300"), credit(cash.ID, "300"))
	h.post(t, day(2025, time.May, 20), debit(cash.ID, "200"), credit(donations.ID, "200"))
	h.post(t, day(2025, time.June, 2), debit(rent.ID, "50"), credit(cash.ID, "50"))

	stmt, err := h.balances.LedgerStatement(ctx, cash.ID, day(2025, time.May, 1), day(2025, time.May, 31))
	if err != nil {
		t.Fatal(err)
	}
	if !stmt.OpeningBalance.Equal(dec("1000")) {
		t.Errorf("opening: expected 1000, got %s", stmt.OpeningBalance)
	}
	if stmt.Len() != 2 {
		t.Fatalf("expected 2 lines, got %d", stmt.Len())
	}

	want := []string{"700", "900"}
	i := 0
	for line := range stmt.Lines() {
		if !line.RunningBalance.Equal(dec(want[i])) {
			t.Errorf("line %d running balance: expected %s, got %s", i, want[i], line.RunningBalance)
		}
		i++
	}
	if !stmt.ClosingBalance().Equal(dec("900")) {
		t.Errorf("closing: expected 900, got %s", stmt.ClosingBalance())
	}

	// closing of May equals the balance as of May 31
	asOf := day(2025, time.May, 31)
	b, err := h.balances.AccountBalance(ctx, cash.ID, &asOf)
	if err != nil {
		t.Fatal(err)
	}
	if !b.Signed().Equal(stmt.ClosingBalance()) {
		t.Errorf("balance as of %s = %s, statement closing = %s", asOf.Format(time.DateOnly), b.Signed(), stmt.ClosingBalance())
	}

	full, err := h.balances.LedgerStatement(ctx, cash.ID, time.Time{}, day(2025, time.December, 31))
	if err != nil {
		t.Fatal(err)
	}
	if full.Len() != 4 || !full.OpeningBalance.IsZero() || !full.ClosingBalance().Equal(dec("850")) {
		t.Errorf("unexpected full statement: len=%d opening=%s closing=%s", full.Len(), full.OpeningBalance, full.ClosingBalance())
	}

	if _, err := h.balances.LedgerStatement(ctx, cash.ID, day(2025, time.June, 1), day(2025, time.May, 1)); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for reversed range, got %v", err)
	}
}

func TestBalanceUseCase_StatementFollowsPostingOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	cash := h.account(t, "11001", "Cash")
	donations := h.account(t, "41001", "Donations")
	rent := h.account(t, "51002", "Rent")

	first, err := h.journal.CreateEntry(ctx, usecase.CreateEntryInput{
		EntryDate: day(2025, time.April, 5), ScopeID: testScope, Actor: testActor,
		Lines: []usecase.EntryLineInput{debit(rent.ID, "100"), credit(cash.ID, "100")},
	})
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.journal.CreateEntry(ctx, usecase.CreateEntryInput{
		EntryDate: day(2025, time.April, 5), ScopeID: testScope, Actor: testActor,
		Lines: []usecase.EntryLineInput{debit(cash.ID, "500"), credit(donations.ID, "500")},
	})
	if err != nil {
		t.Fatal(err)
	}

	clock := testNow
	h.journal.WithNow(func() time.Time { return clock })
	if _, err := h.journal.PostEntry(ctx, second.ID, testActor); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(time.Hour)
	if _, err := h.journal.PostEntry(ctx, first.ID, testActor); err != nil {
		t.Fatal(err)
	}

	stmt, err := h.balances.LedgerStatement(ctx, cash.ID, day(2025, time.April, 1), day(2025, time.April, 30))
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		number  string
		running string
	}{
		{second.EntryNumber, "500"},
		{first.EntryNumber, "400"},
	}
	i := 0
	for line := range stmt.Lines() {
		if line.EntryNumber != want[i].number || !line.RunningBalance.Equal(dec(want[i].running)) {
			t.Errorf("line %d: got %s running %s, want %s running %s",
				i, line.EntryNumber, line.RunningBalance, want[i].number, want[i].running)
		}
		i++
	}
	if i != 2 {
		t.Errorf("expected 2 lines, got %d", i)
	}
}

func TestBalanceUseCase_TrialBalance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	cash := h.account(t, "11001", "Cash")
	bank := h.account(t, "11002", "Bank")
	h.account(t, "21001", "Payables")
	fund, err := h.accounts.CreateAccount(ctx, usecase.CreateAccountInput{
		ScopeID: testScope, Code: "31001", Name: "General fund", Type: domain.AccountTypeEquity, Actor: testActor,
		OpeningBalanceCredit: dec("5000"),
	})
	if err != nil {
		t.Fatal(err)
	}
	h.store.SeedAccount(&domain.Account{
		ID: "bank-opening", ScopeID: testScope, Code: "11003", Name: "Deposit", Type: domain.AccountTypeAsset,
		OpeningBalanceDebit: dec("5000"), IsActive: true, AllowManualEntry: true,
	})
	donations := h.account(t, "41001", "Donations")
	rent := h.account(t, "51002", "Rent")

	h.post(t, day(2025, time.April, 5), debit(cash.ID, "1500"), credit(donations.ID, "1500"))
	h.post(t, day(2025, time.April, 6), debit(bank.ID, "700"), credit(cash.ID, "700"))
	h.post(t, day(2025, time.April, 7), debit(rent.ID, "200"), credit(bank.ID, "200"))
	h.post(t, day(2025, time.August, 1), debit(rent.ID, "999"), credit(bank.ID, "999"))

	tb, err := h.balances.TrialBalance(ctx, testScope, day(2025, time.April, 30))
	if err != nil {
		t.Fatal(err)
	}
	if !tb.IsBalanced {
		t.Errorf("trial balance not balanced: %s vs %s", tb.TotalDebits, tb.TotalCredits)
	}

	// oracle: every row equals the account's own balance as of the same date
	asOf := day(2025, time.April, 30)
	for _, row := range tb.Rows {
		b, err := h.balances.AccountBalance(ctx, row.AccountID, &asOf)
		if err != nil {
			t.Fatal(err)
		}
		if !row.Debit.Sub(row.Credit).Equal(b.Signed()) {
			t.Errorf("%s: row %s/%s, balance %s", row.Code, row.Debit, row.Credit, b.Signed())
		}
	}

	byCode := make(map[string]domain.TrialBalanceRow)
	for _, r := range tb.Rows {
		byCode[r.Code] = r
	}
	if _, ok := byCode["21001"]; ok {
		t.Error("zero-balance account should be omitted")
	}
	if r := byCode[fund.Code]; !r.Credit.Equal(dec("5000")) {
		t.Errorf("fund opening balance missing: %+v", r)
	}
	if r := byCode["51002"]; !r.Debit.Equal(dec("200")) {
		t.Errorf("later activity leaked into trial balance: %+v", r)
	}
	if !tb.TotalDebits.Equal(dec("6500")) {
		t.Errorf("expected total debits 6500, got %s", tb.TotalDebits)
	}
}

func TestBalanceUseCase_CheckConsistency(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	cash := h.account(t, "11001", "Cash")
	donations := h.account(t, "41001", "Donations")
	h.post(t, day(2025, time.April, 5), debit(cash.ID, "10"), credit(donations.ID, "10"))

	ok, err := h.balances.CheckConsistency(ctx, testScope)
	if err != nil || !ok {
		t.Fatalf("expected consistent ledger, got %v %v", ok, err)
	}

	// a row written behind the engine's back
	bad := &domain.JournalEntry{
		ID: "corrupt", ScopeID: testScope, EntryNumber: "JE/2025/9999", EntryDate: day(2025, time.April, 6),
		Status: domain.EntryStatusPosted,
		Lines: []domain.JournalLine{
			{AccountID: cash.ID, Debit: dec("5"), Credit: decimal.Zero},
		},
	}
	if err := h.store.Journals.Create(ctx, nil, bad); err != nil {
		t.Fatal(err)
	}
	ok, err = h.balances.CheckConsistency(ctx, testScope)
	if ok || !errors.Is(err, usecase.ErrInconsistentLedger) {
		t.Errorf("expected ErrInconsistentLedger, got %v %v", ok, err)
	}
}
