package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/usecase"
	"github.com/iho/orgledger/internal/usecase/mocks"
)

type closingFixture struct {
	*harness
	fy        *domain.FinancialYear
	cash      *domain.Account
	donations *domain.Account
	rent      *domain.Account
	fund      *domain.Account
}

func newClosingFixture(t *testing.T) *closingFixture {
	t.Helper()
	h := newHarness(t)
	return &closingFixture{
		harness:   h,
		fy:        h.year(t),
		cash:      h.account(t, "11001", "Cash"),
		donations: h.account(t, "41001", "Donations"),
		rent:      h.account(t, "51002", "Rent"),
		fund:      h.account(t, "31001", "General fund"),
	}
}

func TestClosingUseCase_CloseMonthThenYear(t *testing.T) {
	ctx := context.Background()
	f := newClosingFixture(t)

	f.post(t, day(2025, time.April, 5), debit(f.cash.ID, "1500"), credit(f.donations.ID, "1500"))
	f.post(t, day(2025, time.April, 9), debit(f.rent.ID, "200"), credit(f.cash.ID, "200"))

	c, err := f.closing.CloseMonth(ctx, usecase.CloseMonthInput{
		ScopeID:         testScope,
		FinancialYearID: f.fy.ID,
		ClosingDate:     day(2025, time.April, 15),
		Actor:           testActor,
	})
	if err != nil {
		t.Fatalf("close month: %v", err)
	}
	if !c.TotalIncome.Equal(dec("1500")) || !c.TotalExpenses.Equal(dec("200")) || !c.NetSurplus.Equal(dec("1300")) {
		t.Errorf("unexpected totals: income %s expenses %s net %s", c.TotalIncome, c.TotalExpenses, c.NetSurplus)
	}
	if !c.PeriodStart.Equal(day(2025, time.April, 1)) || !c.PeriodEnd.Equal(day(2025, time.April, 30)) {
		t.Errorf("unexpected window %s..%s", c.PeriodStart, c.PeriodEnd)
	}
	if c.JournalEntryID == nil || c.PeriodID == nil {
		t.Fatalf("closing should link entry and period: %+v", c)
	}

	entry, err := f.journal.GetEntry(ctx, *c.JournalEntryID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.EntryNumber != "CLS/2025/0001" || !entry.EntryDate.Equal(day(2025, time.April, 30)) {
		t.Errorf("unexpected closing entry %s dated %s", entry.EntryNumber, entry.EntryDate)
	}
	for _, acc := range []*domain.Account{f.donations, f.rent} {
		if b := f.balance(t, acc.ID); !b.IsZero() {
			t.Errorf("%s should be zeroed, got %s", acc.Code, b)
		}
	}
	if b := f.balance(t, f.fund.ID); !b.Equal(dec("-1300")) {
		t.Errorf("general fund: expected 1300 Cr, got %s", b)
	}

	_, err = f.journal.CreateEntry(ctx, usecase.CreateEntryInput{
		EntryDate: day(2025, time.April, 20),
		ScopeID:   testScope,
		Actor:     testActor,
		Lines:     []usecase.EntryLineInput{debit(f.cash.ID, "1"), credit(f.donations.ID, "1")},
	})
	if !errors.Is(err, domain.ErrPeriodLocked) {
		t.Errorf("posting into closed month: expected ErrPeriodLocked, got %v", err)
	}

	_, err = f.closing.CloseMonth(ctx, usecase.CloseMonthInput{
		ScopeID: testScope, FinancialYearID: f.fy.ID, ClosingDate: day(2025, time.April, 30), Actor: testActor,
	})
	if !errors.Is(err, domain.ErrPeriodAlreadyClosed) {
		t.Errorf("second close: expected ErrPeriodAlreadyClosed, got %v", err)
	}

	f.post(t, day(2025, time.May, 7), debit(f.cash.ID, "300"), credit(f.donations.ID, "300"))

	yc, err := f.closing.CloseYear(ctx, usecase.CloseYearInput{ScopeID: testScope, FinancialYearID: f.fy.ID, Actor: testActor})
	if err != nil {
		t.Fatalf("close year: %v", err)
	}
	// prior closing entries are excluded from the totals
	if !yc.TotalIncome.Equal(dec("1800")) || !yc.TotalExpenses.Equal(dec("200")) || !yc.NetSurplus.Equal(dec("1600")) {
		t.Errorf("unexpected year totals: income %s expenses %s net %s", yc.TotalIncome, yc.TotalExpenses, yc.NetSurplus)
	}
	if yc.JournalEntryID == nil {
		t.Fatal("year closing should post an entry")
	}
	yearEntry, _ := f.journal.GetEntry(ctx, *yc.JournalEntryID)
	if yearEntry.EntryNumber != "CLS/2026/0001" || !yearEntry.TotalAmount.Equal(dec("300")) {
		t.Errorf("unexpected year entry %s total %s", yearEntry.EntryNumber, yearEntry.TotalAmount)
	}
	if b := f.balance(t, f.donations.ID); !b.IsZero() {
		t.Errorf("donations should be zeroed after year close, got %s", b)
	}
	if b := f.balance(t, f.fund.ID); !b.Equal(dec("-1600")) {
		t.Errorf("general fund: expected 1600 Cr, got %s", b)
	}

	y, _ := f.store.Periods.GetYear(ctx, nil, f.fy.ID)
	if !y.IsClosed || y.IsActive || y.ClosedBy != testActor {
		t.Errorf("year not closed: %+v", y)
	}
	if _, err := f.closing.CloseYear(ctx, usecase.CloseYearInput{ScopeID: testScope, FinancialYearID: f.fy.ID, Actor: testActor}); !errors.Is(err, domain.ErrYearClosed) {
		t.Errorf("expected ErrYearClosed, got %v", err)
	}
	_, err = f.journal.CreateEntry(ctx, usecase.CreateEntryInput{
		EntryDate: day(2025, time.September, 1),
		ScopeID:   testScope,
		Actor:     testActor,
		Lines:     []usecase.EntryLineInput{debit(f.cash.ID, "1"), credit(f.donations.ID, "1")},
	})
	if !errors.Is(err, domain.ErrPeriodLocked) {
		t.Errorf("posting into closed year: expected ErrPeriodLocked, got %v", err)
	}

	if n := len(f.store.Closings()); n != 2 {
		t.Errorf("expected 2 closing records, got %d", n)
	}
	var closed int
	for _, ev := range f.store.Events() {
		if ev.EventType == domain.EventTypePeriodClosed {
			closed++
		}
	}
	if closed != 2 {
		t.Errorf("expected 2 period.closed events, got %d", closed)
	}
}

func TestClosingUseCase_NoActivity(t *testing.T) {
	ctx := context.Background()
	f := newClosingFixture(t)

	c, err := f.closing.CloseMonth(ctx, usecase.CloseMonthInput{
		ScopeID: testScope, FinancialYearID: f.fy.ID, ClosingDate: day(2025, time.June, 3), Actor: testActor,
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.JournalEntryID != nil {
		t.Errorf("expected no closing entry, got %s", *c.JournalEntryID)
	}
	if !c.NetSurplus.IsZero() {
		t.Errorf("expected zero surplus, got %s", c.NetSurplus)
	}
	p, err := f.store.Periods.GetPeriod(ctx, nil, f.fy.ID, day(2025, time.June, 1))
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsLocked || p.Name != "2025-06" {
		t.Errorf("period should be locked: %+v", p)
	}
}

func TestClosingUseCase_SweepsDeactivatedAccount(t *testing.T) {
	ctx := context.Background()
	f := newClosingFixture(t)

	f.post(t, day(2025, time.April, 5), debit(f.cash.ID, "1500"), credit(f.donations.ID, "1500"))
	if _, err := f.accounts.DeactivateAccount(ctx, f.donations.ID, testActor, "merged into grants"); err != nil {
		t.Fatal(err)
	}

	c, err := f.closing.CloseMonth(ctx, usecase.CloseMonthInput{
		ScopeID: testScope, FinancialYearID: f.fy.ID, ClosingDate: day(2025, time.April, 30), Actor: testActor,
	})
	if err != nil {
		t.Fatalf("close month with deactivated income account: %v", err)
	}
	if !c.NetSurplus.Equal(dec("1500")) {
		t.Errorf("expected surplus 1500, got %s", c.NetSurplus)
	}
	if b := f.balance(t, f.donations.ID); !b.IsZero() {
		t.Errorf("deactivated donations should be zeroed, got %s", b)
	}
	if b := f.balance(t, f.fund.ID); !b.Equal(dec("-1500")) {
		t.Errorf("general fund: expected 1500 Cr, got %s", b)
	}

	// user entries still refuse the account
	_, err = f.journal.CreateEntry(ctx, usecase.CreateEntryInput{
		EntryDate: day(2025, time.May, 2),
		ScopeID:   testScope,
		Actor:     testActor,
		Lines:     []usecase.EntryLineInput{debit(f.cash.ID, "1"), credit(f.donations.ID, "1")},
	})
	if !errors.Is(err, domain.ErrAccountInactive) {
		t.Errorf("expected ErrAccountInactive, got %v", err)
	}
}

func TestClosingUseCase_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("date outside year", func(t *testing.T) {
		f := newClosingFixture(t)
		_, err := f.closing.CloseMonth(ctx, usecase.CloseMonthInput{
			ScopeID: testScope, FinancialYearID: f.fy.ID, ClosingDate: day(2026, time.May, 1), Actor: testActor,
		})
		if !errors.Is(err, domain.ErrDateOutsideYear) {
			t.Errorf("expected ErrDateOutsideYear, got %v", err)
		}
	})

	t.Run("year of another scope", func(t *testing.T) {
		f := newClosingFixture(t)
		_, err := f.closing.CloseYear(ctx, usecase.CloseYearInput{ScopeID: "other", FinancialYearID: f.fy.ID, Actor: testActor})
		if !errors.Is(err, domain.ErrYearNotFound) {
			t.Errorf("expected ErrYearNotFound, got %v", err)
		}
	})

	t.Run("missing general fund", func(t *testing.T) {
		h := newHarness(t)
		fy := h.year(t)
		cash := h.account(t, "11001", "Cash")
		donations := h.account(t, "41001", "Donations")
		h.post(t, day(2025, time.April, 5), debit(cash.ID, "10"), credit(donations.ID, "10"))

		_, err := h.closing.CloseMonth(ctx, usecase.CloseMonthInput{
			ScopeID: testScope, FinancialYearID: fy.ID, ClosingDate: day(2025, time.April, 5), Actor: testActor,
		})
		var missing *domain.MissingAccountError
		if !errors.As(err, &missing) || missing.Key != domain.MappingGeneralFund {
			t.Fatalf("expected MissingAccountError for general fund, got %v", err)
		}
		if _, err := h.store.Periods.GetPeriod(ctx, nil, fy.ID, day(2025, time.April, 1)); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("failed close must not lock the period, got %v", err)
		}
	})
}

func TestClosingUseCase_Lock(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	f := newClosingFixture(t)
	locker := mocks.NewMockLocker(ctrl)
	closing := usecase.NewClosingUseCase(f.store.TxManager, f.store.Accounts, f.store.Balances, f.store.Periods,
		f.journal, f.mappings, f.store.Audit, f.store.Outbox, locker, f.retrier, f.idGen).
		WithLockTTL(time.Minute)
	key := usecase.ClosingLockKey(testScope, f.fy.ID)

	locker.EXPECT().TryLock(gomock.Any(), key, time.Minute).Return("", false, nil)
	_, err := closing.CloseMonth(ctx, usecase.CloseMonthInput{
		ScopeID: testScope, FinancialYearID: f.fy.ID, ClosingDate: day(2025, time.April, 5), Actor: testActor,
	})
	if !errors.Is(err, domain.ErrClosingInProgress) {
		t.Fatalf("expected ErrClosingInProgress, got %v", err)
	}

	gomock.InOrder(
		locker.EXPECT().TryLock(gomock.Any(), key, time.Minute).Return("token-1", true, nil),
		locker.EXPECT().Unlock(gomock.Any(), key, "token-1").Return(nil),
	)
	if _, err := closing.CloseMonth(ctx, usecase.CloseMonthInput{
		ScopeID: testScope, FinancialYearID: f.fy.ID, ClosingDate: day(2025, time.April, 5), Actor: testActor,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the lock is released even when closing fails
	gomock.InOrder(
		locker.EXPECT().TryLock(gomock.Any(), key, time.Minute).Return("token-2", true, nil),
		locker.EXPECT().Unlock(gomock.Any(), key, "token-2").Return(nil),
	)
	if _, err := closing.CloseMonth(ctx, usecase.CloseMonthInput{
		ScopeID: testScope, FinancialYearID: f.fy.ID, ClosingDate: day(2025, time.April, 5), Actor: testActor,
	}); !errors.Is(err, domain.ErrPeriodAlreadyClosed) {
		t.Fatalf("expected ErrPeriodAlreadyClosed, got %v", err)
	}
}
