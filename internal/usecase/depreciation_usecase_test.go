package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/usecase"
)

type depFixture struct {
	*harness
	fy          *domain.FinancialYear
	expense     *domain.Account
	accumulated *domain.Account
	asset       *domain.Asset
}

func newDepFixture(t *testing.T) *depFixture {
	t.Helper()
	h := newHarness(t)
	f := &depFixture{harness: h, fy: h.year(t)}

	no := false
	f.expense = h.account(t, "51001", "Depreciation expense")
	acc, err := h.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{
		ScopeID: testScope, Code: "12901", Name: "Accumulated depreciation", Type: domain.AccountTypeAsset,
		Subtype: domain.SubtypeAccumulatedDepreciation, Actor: testActor, AllowManualEntry: &no,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.accumulated = acc

	f.asset = f.seedAsset("asset-1", "FA-001", domain.MethodStraightLine)
	return f
}

func (f *depFixture) seedAsset(id, code string, method domain.DepreciationMethod) *domain.Asset {
	a := &domain.Asset{
		ID:              id,
		ScopeID:         testScope,
		Code:            code,
		Name:            "Van",
		CategoryCode:    "VEH",
		Method:          method,
		Status:          domain.AssetStatusActive,
		Cost:            dec("100000"),
		SalvageValue:    dec("10000"),
		UsefulLifeYears: 10,
		IsDepreciable:   true,
	}
	f.store.SeedAsset(a)
	return a
}

func (f *depFixture) calculate(t *testing.T, assetID, period string, start, end time.Time) *domain.DepreciationSchedule {
	t.Helper()
	s, err := f.deprec.Calculate(context.Background(), usecase.CalculateInput{
		AssetID:         assetID,
		FinancialYearID: f.fy.ID,
		Period:          period,
		PeriodStart:     start,
		PeriodEnd:       end,
		Actor:           testActor,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	return s
}

func TestDepreciationUseCase_CalculateAndPost(t *testing.T) {
	ctx := context.Background()
	f := newDepFixture(t)

	s := f.calculate(t, f.asset.ID, "FY2025", day(2025, time.April, 1), day(2026, time.March, 31))
	if s.Status != domain.ScheduleStatusCalculated {
		t.Errorf("expected CALCULATED, got %s", s.Status)
	}
	if !s.DepreciationAmount.Equal(dec("9000")) || !s.ClosingBookValue.Equal(dec("91000")) {
		t.Errorf("expected 9000 / 91000, got %s / %s", s.DepreciationAmount, s.ClosingBookValue)
	}
	if n := len(f.store.Entries()); n != 0 {
		t.Errorf("calculate must not post, found %d entries", n)
	}

	posted, err := f.deprec.Post(ctx, s.ID, testActor)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if posted.Status != domain.ScheduleStatusPosted || posted.JournalEntryID == nil {
		t.Fatalf("unexpected posted schedule: %+v", posted)
	}

	entry, err := f.journal.GetEntry(ctx, *posted.JournalEntryID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.EntryNumber != "DEP/2026/0001" || entry.Status != domain.EntryStatusPosted {
		t.Errorf("unexpected entry %s %s", entry.EntryNumber, entry.Status)
	}
	if entry.Reference == nil || entry.Reference.Type != usecase.ReferenceTypeDepreciation || entry.Reference.ID != s.ID {
		t.Errorf("entry not linked back to schedule: %+v", entry.Reference)
	}

	if b := f.balance(t, f.expense.ID); !b.Equal(dec("9000")) {
		t.Errorf("expense: expected 9000 Dr, got %s", b)
	}
	if b := f.balance(t, f.accumulated.ID); !b.Equal(dec("-9000")) {
		t.Errorf("accumulated: expected 9000 Cr, got %s", b)
	}

	asset, _ := f.store.Assets.GetByID(ctx, nil, f.asset.ID)
	if !asset.CurrentBookValue.Equal(dec("91000")) || !asset.AccumulatedDepreciation.Equal(dec("9000")) {
		t.Errorf("asset not updated: book %s accumulated %s", asset.CurrentBookValue, asset.AccumulatedDepreciation)
	}

	if _, err := f.deprec.Post(ctx, s.ID, testActor); !errors.Is(err, domain.ErrScheduleAlreadyPosted) {
		t.Errorf("double post: expected ErrScheduleAlreadyPosted, got %v", err)
	}
	if n := len(f.store.Entries()); n != 1 {
		t.Errorf("double post created entries: %d", n)
	}

	next := f.calculate(t, f.asset.ID, "FY2026", day(2026, time.April, 1), day(2027, time.March, 31))
	if !next.OpeningBookValue.Equal(dec("91000")) {
		t.Errorf("next period should open at 91000, got %s", next.OpeningBookValue)
	}
}

func TestDepreciationUseCase_DuplicatePeriod(t *testing.T) {
	ctx := context.Background()
	f := newDepFixture(t)
	s := f.calculate(t, f.asset.ID, "2025-04", day(2025, time.April, 1), day(2025, time.April, 30))

	_, err := f.deprec.Calculate(ctx, usecase.CalculateInput{
		AssetID: f.asset.ID, FinancialYearID: f.fy.ID, Period: "2025-04",
		PeriodStart: day(2025, time.April, 1), PeriodEnd: day(2025, time.April, 30), Actor: testActor,
	})
	if !errors.Is(err, domain.ErrDuplicatePeriod) {
		t.Fatalf("expected ErrDuplicatePeriod, got %v", err)
	}

	if _, err := f.deprec.Cancel(ctx, s.ID, testActor); err != nil {
		t.Fatal(err)
	}
	again := f.calculate(t, f.asset.ID, "2025-04", day(2025, time.April, 1), day(2025, time.April, 30))
	if !again.DepreciationAmount.Equal(dec("750")) {
		t.Errorf("one month straight line: expected 750, got %s", again.DepreciationAmount)
	}
}

func TestDepreciationUseCase_StaleSchedule(t *testing.T) {
	ctx := context.Background()
	f := newDepFixture(t)
	april := f.calculate(t, f.asset.ID, "2025-04", day(2025, time.April, 1), day(2025, time.April, 30))
	may := f.calculate(t, f.asset.ID, "2025-05", day(2025, time.May, 1), day(2025, time.May, 31))

	if _, err := f.deprec.Post(ctx, april.ID, testActor); err != nil {
		t.Fatal(err)
	}
	if _, err := f.deprec.Post(ctx, may.ID, testActor); !errors.Is(err, domain.ErrStaleSchedule) {
		t.Errorf("expected ErrStaleSchedule, got %v", err)
	}
}

func TestDepreciationUseCase_MissingMapping(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	f := &depFixture{harness: h, fy: h.year(t)}
	f.expense = h.account(t, "51001", "Depreciation expense")
	f.asset = f.seedAsset("asset-1", "FA-001", domain.MethodStraightLine)

	s := f.calculate(t, f.asset.ID, "FY2025", day(2025, time.April, 1), day(2026, time.March, 31))
	_, err := f.deprec.Post(ctx, s.ID, testActor)

	var missing *domain.MissingAccountError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingAccountError, got %v", err)
	}
	if missing.Code != "12901" || missing.Key != domain.AccumulatedDepreciationKey("VEH") {
		t.Errorf("unexpected missing account: %+v", missing)
	}
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Error("MissingAccountError should unwrap to ErrConfiguration")
	}

	if n := len(f.store.Entries()); n != 0 {
		t.Errorf("failed post left %d entries", n)
	}
	got, _ := f.deprec.GetSchedule(ctx, s.ID)
	if got.Status != domain.ScheduleStatusCalculated {
		t.Errorf("schedule should stay CALCULATED, got %s", got.Status)
	}
}

func TestDepreciationUseCase_CategoryMapping(t *testing.T) {
	ctx := context.Background()
	f := newDepFixture(t)
	vehicles := f.account(t, "12902", "Accumulated depreciation - vehicles")

	if _, err := f.mappings.SetMapping(ctx, usecase.SetMappingInput{
		ScopeID:     testScope,
		Key:         domain.AccumulatedDepreciationKey("VEH"),
		AccountCode: vehicles.Code,
	}); err != nil {
		t.Fatal(err)
	}

	s := f.calculate(t, f.asset.ID, "FY2025", day(2025, time.April, 1), day(2026, time.March, 31))
	if _, err := f.deprec.Post(ctx, s.ID, testActor); err != nil {
		t.Fatal(err)
	}
	if b := f.balance(t, vehicles.ID); !b.Equal(dec("-9000")) {
		t.Errorf("category account: expected 9000 Cr, got %s", b)
	}
	if b := f.balance(t, f.accumulated.ID); !b.IsZero() {
		t.Errorf("generic account should be untouched, got %s", b)
	}
}

func TestDepreciationUseCase_ZeroAmount(t *testing.T) {
	ctx := context.Background()
	f := newDepFixture(t)
	land := f.seedAsset("asset-land", "LAND-1", domain.MethodNone)

	s := f.calculate(t, land.ID, "FY2025", day(2025, time.April, 1), day(2026, time.March, 31))
	posted, err := f.deprec.Post(ctx, s.ID, testActor)
	if err != nil {
		t.Fatal(err)
	}
	if posted.JournalEntryID != nil {
		t.Errorf("zero depreciation should not create an entry, got %s", *posted.JournalEntryID)
	}
	if n := len(f.store.Entries()); n != 0 {
		t.Errorf("expected no entries, got %d", n)
	}
}

func TestDepreciationUseCase_CalculateBatch(t *testing.T) {
	ctx := context.Background()
	f := newDepFixture(t)
	f.seedAsset("asset-2", "FA-002", domain.MethodDoubleDeclining)
	broken := f.seedAsset("asset-3", "FA-003", domain.MethodStraightLine)
	broken.IsDepreciable = false
	f.store.SeedAsset(broken)

	results, err := f.deprec.WithConcurrency(2).CalculateBatch(ctx, usecase.BatchInput{
		AssetIDs:        []string{f.asset.ID, "asset-2", "asset-3"},
		FinancialYearID: f.fy.ID,
		Period:          "FY2025",
		PeriodStart:     day(2025, time.April, 1),
		PeriodEnd:       day(2026, time.March, 31),
		Actor:           testActor,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || !results[0].Schedule.DepreciationAmount.Equal(dec("9000")) {
		t.Errorf("asset-1: %+v", results[0])
	}
	if results[1].Err != nil || !results[1].Schedule.DepreciationAmount.Equal(dec("20000")) {
		t.Errorf("asset-2: %+v", results[1])
	}
	if !errors.Is(results[2].Err, domain.ErrNotDepreciable) {
		t.Errorf("asset-3: expected ErrNotDepreciable, got %v", results[2].Err)
	}
}
