package mocks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/usecase"
)

// Store is an in-memory ledger backing every repository port. Transactions
// are serialised and roll back to a snapshot, which stands in for row
// locks and atomicity.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state

	Accounts  *MockAccountRepository
	Journals  *MockJournalRepository
	Sequences *MockSequenceRepository
	Balances  *MockBalanceRepository
	Assets    *MockAssetRepository
	Schedules *MockScheduleRepository
	Periods   *MockPeriodRepository
	Mappings  *MockMappingRepository
	Outbox    *MockOutboxRepository
	Audit     *MockAuditRepository
	TxManager *MockTransactionManager
}

type state struct {
	accounts  map[string]domain.Account
	entries   map[string]domain.JournalEntry
	sequences map[string]int64
	assets    map[string]domain.Asset
	schedules map[string]domain.DepreciationSchedule
	years     map[string]domain.FinancialYear
	periods   map[string]domain.FinancialPeriod
	closings  map[string]domain.PeriodClosing
	mappings  map[string]domain.AccountMapping
	outbox    map[string]domain.OutboxEvent
	audit     []domain.AuditLog
}

func (s state) clone() state {
	return state{
		accounts:  maps.Clone(s.accounts),
		entries:   maps.Clone(s.entries),
		sequences: maps.Clone(s.sequences),
		assets:    maps.Clone(s.assets),
		schedules: maps.Clone(s.schedules),
		years:     maps.Clone(s.years),
		periods:   maps.Clone(s.periods),
		closings:  maps.Clone(s.closings),
		mappings:  maps.Clone(s.mappings),
		outbox:    maps.Clone(s.outbox),
		audit:     slices.Clone(s.audit),
	}
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{
		data: state{
			accounts:  make(map[string]domain.Account),
			entries:   make(map[string]domain.JournalEntry),
			sequences: make(map[string]int64),
			assets:    make(map[string]domain.Asset),
			schedules: make(map[string]domain.DepreciationSchedule),
			years:     make(map[string]domain.FinancialYear),
			periods:   make(map[string]domain.FinancialPeriod),
			closings:  make(map[string]domain.PeriodClosing),
			mappings:  make(map[string]domain.AccountMapping),
			outbox:    make(map[string]domain.OutboxEvent),
		},
	}
	s.Accounts = &MockAccountRepository{s: s}
	s.Journals = &MockJournalRepository{s: s}
	s.Sequences = &MockSequenceRepository{s: s}
	s.Balances = &MockBalanceRepository{s: s}
	s.Assets = &MockAssetRepository{s: s}
	s.Schedules = &MockScheduleRepository{s: s}
	s.Periods = &MockPeriodRepository{s: s}
	s.Mappings = &MockMappingRepository{s: s}
	s.Outbox = &MockOutboxRepository{s: s}
	s.Audit = &MockAuditRepository{s: s}
	s.TxManager = &MockTransactionManager{s: s}
	return s
}

// SeedAccount stores a without going through a use case.
func (s *Store) SeedAccount(a *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.accounts[a.ID] = *a
}

// SeedAsset stores a.
func (s *Store) SeedAsset(a *domain.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.assets[a.ID] = *a
}

// SeedYear stores y.
func (s *Store) SeedYear(y *domain.FinancialYear) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.years[y.ID] = *y
}

// SeedPeriod stores p.
func (s *Store) SeedPeriod(p *domain.FinancialPeriod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.periods[periodKey(p.FinancialYearID, p.StartDate)] = *p
}

// Entries returns every stored journal entry ordered by entry number.
func (s *Store) Entries() []*domain.JournalEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.JournalEntry, 0, len(s.data.entries))
	for _, e := range s.data.entries {
		out = append(out, copyEntry(e))
	}
	slices.SortFunc(out, func(a, b *domain.JournalEntry) int { return cmp.Compare(a.EntryNumber, b.EntryNumber) })
	return out
}

// Closings returns every stored period closing.
func (s *Store) Closings() []*domain.PeriodClosing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.PeriodClosing, 0, len(s.data.closings))
	for _, c := range s.data.closings {
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *domain.PeriodClosing) int { return a.PeriodStart.Compare(b.PeriodStart) })
	return out
}

// Events returns every outbox event ordered by creation time.
func (s *Store) Events() []*domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.OutboxEvent, 0, len(s.data.outbox))
	for _, e := range s.data.outbox {
		out = append(out, &e)
	}
	slices.SortFunc(out, func(a, b *domain.OutboxEvent) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

// AuditLogs returns every audit record in insertion order.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.audit)
}

func (s *Store) read(fn func(d *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.data)
}

func (s *Store) write(fn func(d *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

func copyEntry(e domain.JournalEntry) *domain.JournalEntry {
	e.Lines = slices.Clone(e.Lines)
	return &e
}

func periodKey(yearID string, start time.Time) string {
	return yearID + "|" + domain.DateOnly(start).Format(time.DateOnly)
}

// MockTransactionManager hands out serialised snapshot transactions.
type MockTransactionManager struct {
	s *Store

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
	// Begun counts transactions started, read-only included.
	Begun atomic.Int64
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return m.begin(false), nil
}

func (m *MockTransactionManager) BeginReadOnly(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return m.begin(true), nil
}

func (m *MockTransactionManager) begin(readOnly bool) *MockTransaction {
	m.Begun.Add(1)
	m.s.txMu.Lock()
	m.s.mu.RLock()
	snap := m.s.data.clone()
	m.s.mu.RUnlock()
	return &MockTransaction{s: m.s, snapshot: snap, ReadOnly: readOnly}
}

// MockTransaction restores its snapshot on Rollback unless committed.
type MockTransaction struct {
	s        *Store
	snapshot state
	done     bool
	ReadOnly bool
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	t.s.txMu.Unlock()
	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Lock()
	t.s.data = t.snapshot
	t.s.mu.Unlock()
	t.s.txMu.Unlock()
	return nil
}

// MockAccountRepository implements usecase.AccountRepository.
type MockAccountRepository struct {
	s *Store

	CreateFunc func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, account)
	}
	return m.s.write(func(d *state) error {
		for _, a := range d.accounts {
			if a.ScopeID == account.ScopeID && a.Code == account.Code {
				return domain.ErrDuplicateCode
			}
		}
		d.accounts[account.ID] = *account
		return nil
	})
}

func (m *MockAccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	return m.s.write(func(d *state) error {
		if _, ok := d.accounts[account.ID]; !ok {
			return domain.ErrAccountNotFound
		}
		d.accounts[account.ID] = *account
		return nil
	})
}

func (m *MockAccountRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	var (
		acc domain.Account
		ok  bool
	)
	m.s.read(func(d *state) { acc, ok = d.accounts[id] })
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &acc, nil
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	return m.GetByID(ctx, tx, id)
}

func (m *MockAccountRepository) GetByCode(ctx context.Context, tx usecase.Transaction, scopeID, code string) (*domain.Account, error) {
	var found *domain.Account
	m.s.read(func(d *state) {
		for _, a := range d.accounts {
			if a.ScopeID == scopeID && a.Code == code {
				found = &a
				return
			}
		}
	})
	if found == nil {
		return nil, domain.ErrAccountNotFound
	}
	return found, nil
}

func (m *MockAccountRepository) GetByIDs(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	var out []*domain.Account
	m.s.read(func(d *state) {
		for _, id := range ids {
			if a, ok := d.accounts[id]; ok {
				out = append(out, &a)
			}
		}
	})
	return out, nil
}

func (m *MockAccountRepository) ListByScope(ctx context.Context, tx usecase.Transaction, scopeID string) ([]*domain.Account, error) {
	var out []*domain.Account
	m.s.read(func(d *state) {
		for _, a := range d.accounts {
			if a.ScopeID == scopeID {
				out = append(out, &a)
			}
		}
	})
	slices.SortFunc(out, func(a, b *domain.Account) int { return cmp.Compare(a.Code, b.Code) })
	return out, nil
}

// MockJournalRepository implements usecase.JournalRepository.
type MockJournalRepository struct {
	s *Store

	CreateFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error
}

func (m *MockJournalRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	return m.s.write(func(d *state) error {
		for _, e := range d.entries {
			if e.ScopeID == entry.ScopeID && e.EntryNumber == entry.EntryNumber {
				return fmt.Errorf("%w: %s", domain.ErrSequenceConflict, entry.EntryNumber)
			}
		}
		d.entries[entry.ID] = *copyEntry(*entry)
		return nil
	})
}

func (m *MockJournalRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.JournalEntry, error) {
	var (
		e  domain.JournalEntry
		ok bool
	)
	m.s.read(func(d *state) { e, ok = d.entries[id] })
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return copyEntry(e), nil
}

func (m *MockJournalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.JournalEntry, error) {
	return m.GetByID(ctx, tx, id)
}

func (m *MockJournalRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	return m.s.write(func(d *state) error {
		cur, ok := d.entries[entry.ID]
		if !ok {
			return domain.ErrEntryNotFound
		}
		cur.Status = entry.Status
		cur.PostedAt, cur.PostedBy = entry.PostedAt, entry.PostedBy
		cur.CancelledAt, cur.CancelledBy, cur.CancelReason = entry.CancelledAt, entry.CancelledBy, entry.CancelReason
		cur.UpdatedAt = entry.UpdatedAt
		d.entries[entry.ID] = cur
		return nil
	})
}

func (m *MockJournalRepository) ReplaceDraft(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	return m.s.write(func(d *state) error {
		cur, ok := d.entries[entry.ID]
		if !ok {
			return domain.ErrEntryNotFound
		}
		if cur.Status != domain.EntryStatusDraft {
			return domain.ErrInvalidTransition
		}
		d.entries[entry.ID] = *copyEntry(*entry)
		return nil
	})
}

// MockSequenceRepository implements usecase.SequenceRepository.
type MockSequenceRepository struct {
	s *Store
}

func (m *MockSequenceRepository) Next(ctx context.Context, tx usecase.Transaction, scopeID string, year int, prefix string) (int64, error) {
	var next int64
	err := m.s.write(func(d *state) error {
		key := fmt.Sprintf("%s|%d|%s", scopeID, year, prefix)
		d.sequences[key]++
		next = d.sequences[key]
		return nil
	})
	return next, err
}

// MockBalanceRepository implements usecase.BalanceRepository over POSTED
// entries.
type MockBalanceRepository struct {
	s *Store
}

func (m *MockBalanceRepository) posted(match func(e *domain.JournalEntry) bool, fn func(e *domain.JournalEntry, l domain.JournalLine)) {
	m.s.read(func(d *state) {
		for _, e := range d.entries {
			if e.Status != domain.EntryStatusPosted || !match(&e) {
				continue
			}
			for _, l := range e.Lines {
				fn(&e, l)
			}
		}
	})
}

func addLine(t domain.Totals, l domain.JournalLine) domain.Totals {
	return t.Add(domain.Totals{Debit: l.Debit, Credit: l.Credit})
}

func (m *MockBalanceRepository) AccountTotals(ctx context.Context, tx usecase.Transaction, accountID string, asOf *time.Time) (domain.Totals, error) {
	var t domain.Totals
	m.posted(func(e *domain.JournalEntry) bool {
		return asOf == nil || !e.EntryDate.After(*asOf)
	}, func(_ *domain.JournalEntry, l domain.JournalLine) {
		if l.AccountID == accountID {
			t = addLine(t, l)
		}
	})
	return t, nil
}

func (m *MockBalanceRepository) ScopeTotals(ctx context.Context, tx usecase.Transaction, scopeID string, asOf time.Time) (map[string]domain.Totals, error) {
	out := make(map[string]domain.Totals)
	m.posted(func(e *domain.JournalEntry) bool {
		return e.ScopeID == scopeID && !e.EntryDate.After(asOf)
	}, func(_ *domain.JournalEntry, l domain.JournalLine) {
		out[l.AccountID] = addLine(out[l.AccountID], l)
	})
	return out, nil
}

func (m *MockBalanceRepository) WindowTotals(ctx context.Context, tx usecase.Transaction, scopeID string, from, to time.Time, excludeRefType string) (map[string]domain.Totals, error) {
	out := make(map[string]domain.Totals)
	m.posted(func(e *domain.JournalEntry) bool {
		if e.ScopeID != scopeID || e.EntryDate.Before(from) || e.EntryDate.After(to) {
			return false
		}
		return excludeRefType == "" || e.Reference == nil || e.Reference.Type != excludeRefType
	}, func(_ *domain.JournalEntry, l domain.JournalLine) {
		out[l.AccountID] = addLine(out[l.AccountID], l)
	})
	return out, nil
}

func (m *MockBalanceRepository) AccountTotalsBefore(ctx context.Context, tx usecase.Transaction, accountID string, date time.Time) (domain.Totals, error) {
	var t domain.Totals
	m.posted(func(e *domain.JournalEntry) bool {
		return e.EntryDate.Before(date)
	}, func(_ *domain.JournalEntry, l domain.JournalLine) {
		if l.AccountID == accountID {
			t = addLine(t, l)
		}
	})
	return t, nil
}

func (m *MockBalanceRepository) StatementLines(ctx context.Context, tx usecase.Transaction, accountID string, from, to time.Time) ([]usecase.ActivityLine, error) {
	var out []usecase.ActivityLine
	m.posted(func(e *domain.JournalEntry) bool {
		return !e.EntryDate.Before(from) && !e.EntryDate.After(to)
	}, func(e *domain.JournalEntry, l domain.JournalLine) {
		if l.AccountID != accountID {
			return
		}
		var postedAt time.Time
		if e.PostedAt != nil {
			postedAt = *e.PostedAt
		}
		out = append(out, usecase.ActivityLine{
			EntryDate:   e.EntryDate,
			PostedAt:    postedAt,
			EntryID:     e.ID,
			EntryNumber: e.EntryNumber,
			Narration:   e.Narration,
			Description: l.Description,
			LineNo:      l.LineNo,
			Debit:       l.Debit,
			Credit:      l.Credit,
		})
	})
	slices.SortFunc(out, func(a, b usecase.ActivityLine) int {
		return cmp.Or(
			a.EntryDate.Compare(b.EntryDate),
			a.PostedAt.Compare(b.PostedAt),
			cmp.Compare(a.EntryID, b.EntryID),
			cmp.Compare(a.LineNo, b.LineNo),
		)
	})
	return out, nil
}

func (m *MockBalanceRepository) PostedTotals(ctx context.Context, tx usecase.Transaction, scopeID string) (domain.Totals, error) {
	var t domain.Totals
	m.posted(func(e *domain.JournalEntry) bool {
		return e.ScopeID == scopeID
	}, func(_ *domain.JournalEntry, l domain.JournalLine) {
		t = addLine(t, l)
	})
	return t, nil
}

// MockAssetRepository implements usecase.AssetRepository.
type MockAssetRepository struct {
	s *Store
}

func (m *MockAssetRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Asset, error) {
	var (
		a  domain.Asset
		ok bool
	)
	m.s.read(func(d *state) { a, ok = d.assets[id] })
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	return &a, nil
}

func (m *MockAssetRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Asset, error) {
	return m.GetByID(ctx, tx, id)
}

func (m *MockAssetRepository) UpdateBookValue(ctx context.Context, tx usecase.Transaction, asset *domain.Asset) error {
	return m.s.write(func(d *state) error {
		if _, ok := d.assets[asset.ID]; !ok {
			return domain.ErrAssetNotFound
		}
		d.assets[asset.ID] = *asset
		return nil
	})
}

// MockScheduleRepository implements usecase.ScheduleRepository.
type MockScheduleRepository struct {
	s *Store
}

func sameSlot(s domain.DepreciationSchedule, assetID, yearID, period string, start time.Time) bool {
	return s.Status != domain.ScheduleStatusCancelled &&
		s.AssetID == assetID &&
		s.FinancialYearID == yearID &&
		s.Period == period &&
		s.PeriodStart.Equal(start)
}

func (m *MockScheduleRepository) Create(ctx context.Context, tx usecase.Transaction, schedule *domain.DepreciationSchedule) error {
	return m.s.write(func(d *state) error {
		for _, s := range d.schedules {
			if sameSlot(s, schedule.AssetID, schedule.FinancialYearID, schedule.Period, schedule.PeriodStart) {
				return domain.ErrDuplicatePeriod
			}
		}
		d.schedules[schedule.ID] = *schedule
		return nil
	})
}

func (m *MockScheduleRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.DepreciationSchedule, error) {
	var (
		s  domain.DepreciationSchedule
		ok bool
	)
	m.s.read(func(d *state) { s, ok = d.schedules[id] })
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	return &s, nil
}

func (m *MockScheduleRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.DepreciationSchedule, error) {
	return m.GetByID(ctx, tx, id)
}

func (m *MockScheduleRepository) ExistsForPeriod(ctx context.Context, tx usecase.Transaction, assetID, financialYearID, period string, start time.Time) (bool, error) {
	var exists bool
	m.s.read(func(d *state) {
		for _, s := range d.schedules {
			if sameSlot(s, assetID, financialYearID, period, start) {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (m *MockScheduleRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, schedule *domain.DepreciationSchedule) error {
	return m.s.write(func(d *state) error {
		if _, ok := d.schedules[schedule.ID]; !ok {
			return domain.ErrScheduleNotFound
		}
		d.schedules[schedule.ID] = *schedule
		return nil
	})
}

// MockPeriodRepository implements usecase.PeriodRepository.
type MockPeriodRepository struct {
	s *Store
}

func (m *MockPeriodRepository) GetYear(ctx context.Context, tx usecase.Transaction, id string) (*domain.FinancialYear, error) {
	var (
		y  domain.FinancialYear
		ok bool
	)
	m.s.read(func(d *state) { y, ok = d.years[id] })
	if !ok {
		return nil, domain.ErrYearNotFound
	}
	return &y, nil
}

func (m *MockPeriodRepository) GetYearForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.FinancialYear, error) {
	return m.GetYear(ctx, tx, id)
}

func (m *MockPeriodRepository) UpdateYear(ctx context.Context, tx usecase.Transaction, year *domain.FinancialYear) error {
	return m.s.write(func(d *state) error {
		if _, ok := d.years[year.ID]; !ok {
			return domain.ErrYearNotFound
		}
		d.years[year.ID] = *year
		return nil
	})
}

func (m *MockPeriodRepository) GetPeriod(ctx context.Context, tx usecase.Transaction, financialYearID string, start time.Time) (*domain.FinancialPeriod, error) {
	var (
		p  domain.FinancialPeriod
		ok bool
	)
	m.s.read(func(d *state) { p, ok = d.periods[periodKey(financialYearID, start)] })
	if !ok {
		return nil, fmt.Errorf("%w: financial period", domain.ErrNotFound)
	}
	return &p, nil
}

func (m *MockPeriodRepository) UpsertPeriod(ctx context.Context, tx usecase.Transaction, period *domain.FinancialPeriod) error {
	return m.s.write(func(d *state) error {
		d.periods[periodKey(period.FinancialYearID, period.StartDate)] = *period
		return nil
	})
}

func (m *MockPeriodRepository) IsDateLocked(ctx context.Context, tx usecase.Transaction, scopeID string, date time.Time) (bool, error) {
	if closed, _ := m.IsYearClosed(ctx, tx, scopeID, date); closed {
		return true, nil
	}
	var locked bool
	m.s.read(func(d *state) {
		for _, p := range d.periods {
			if p.ScopeID == scopeID && p.IsLocked && p.Contains(date) {
				locked = true
				return
			}
		}
	})
	return locked, nil
}

func (m *MockPeriodRepository) IsYearClosed(ctx context.Context, tx usecase.Transaction, scopeID string, date time.Time) (bool, error) {
	var closed bool
	m.s.read(func(d *state) {
		for _, y := range d.years {
			if y.ScopeID == scopeID && y.IsClosed && y.Contains(date) {
				closed = true
				return
			}
		}
	})
	return closed, nil
}

func (m *MockPeriodRepository) CreateClosing(ctx context.Context, tx usecase.Transaction, closing *domain.PeriodClosing) error {
	return m.s.write(func(d *state) error {
		d.closings[closing.ID] = *closing
		return nil
	})
}

// MockMappingRepository implements usecase.MappingRepository.
type MockMappingRepository struct {
	s *Store
}

func mappingKey(scopeID string, key domain.MappingKey) string {
	return scopeID + "|" + string(key)
}

func (m *MockMappingRepository) Get(ctx context.Context, tx usecase.Transaction, scopeID string, key domain.MappingKey) (*domain.AccountMapping, error) {
	var (
		mp domain.AccountMapping
		ok bool
	)
	m.s.read(func(d *state) { mp, ok = d.mappings[mappingKey(scopeID, key)] })
	if !ok {
		return nil, domain.ErrMappingNotFound
	}
	return &mp, nil
}

func (m *MockMappingRepository) Upsert(ctx context.Context, tx usecase.Transaction, mapping *domain.AccountMapping) error {
	return m.s.write(func(d *state) error {
		d.mappings[mappingKey(mapping.ScopeID, mapping.Key)] = *mapping
		return nil
	})
}

// MockOutboxRepository implements usecase.OutboxRepository.
type MockOutboxRepository struct {
	s *Store
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	return m.s.write(func(d *state) error {
		d.outbox[event.ID] = *event
		return nil
	})
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var out []*domain.OutboxEvent
	m.s.read(func(d *state) {
		for _, e := range d.outbox {
			if !e.Published {
				out = append(out, &e)
			}
		}
	})
	slices.SortFunc(out, func(a, b *domain.OutboxEvent) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return m.s.write(func(d *state) error {
		e, ok := d.outbox[id]
		if !ok {
			return domain.ErrNotFound
		}
		e.Published = true
		e.PublishedAt = &publishedAt
		d.outbox[id] = e
		return nil
	})
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return m.s.write(func(d *state) error {
		for id, e := range d.outbox {
			if e.Published && e.PublishedAt.Before(before) {
				delete(d.outbox, id)
			}
		}
		return nil
	})
}

// MockAuditRepository implements usecase.AuditRepository.
type MockAuditRepository struct {
	s *Store
}

func (m *MockAuditRepository) Create(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return m.s.write(func(d *state) error {
		d.audit = append(d.audit, *log)
		return nil
	})
}

func (m *MockAuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	var out []*domain.AuditLog
	m.s.read(func(d *state) {
		for _, l := range d.audit {
			if l.ResourceType == resourceType && l.ResourceID == resourceID {
				out = append(out, &l)
			}
		}
	})
	return out, nil
}

// MockIDGenerator yields "<prefix>-1", "<prefix>-2", ... unless GenerateFunc
// is set.
type MockIDGenerator struct {
	n atomic.Int64

	Prefix       string
	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{Prefix: "id"}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	return fmt.Sprintf("%s-%d", m.Prefix, m.n.Add(1))
}

// MockRetrier re-runs retryable failures up to Attempts times.
type MockRetrier struct {
	Attempts int
	Calls    atomic.Int64
}

func NewMockRetrier() *MockRetrier {
	return &MockRetrier{Attempts: 3}
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	var err error
	for range max(m.Attempts, 1) {
		m.Calls.Add(1)
		if err = operation(); err == nil || !usecase.IsRetryable(err) {
			return err
		}
	}
	return err
}
