package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/infrastructure/postgres/generated"
	"github.com/iho/orgledger/internal/usecase"
)

// JournalRepository implements usecase.JournalRepository.
type JournalRepository struct {
	db generated.DBTX
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(db generated.DBTX) *JournalRepository {
	return &JournalRepository{db: db}
}

// Create inserts an entry and its lines.
func (r *JournalRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	q := queries(r.db, tx)

	refType, refID := referenceToText(entry.Reference)
	err := q.CreateJournalEntry(ctx, generated.CreateJournalEntryParams{
		ID:            entry.ID,
		ScopeID:       entry.ScopeID,
		EntryNumber:   entry.EntryNumber,
		EntryDate:     dateToPgDate(entry.EntryDate),
		Narration:     entry.Narration,
		ReferenceType: refType,
		ReferenceID:   refID,
		Status:        string(entry.Status),
		TotalAmount:   decimalToNumeric(entry.TotalAmount),
		CreatedBy:     entry.CreatedBy,
		PostedBy:      textOrNull(entry.PostedBy),
		PostedAt:      optionalTimestamptz(entry.PostedAt),
		CreatedAt:     timeToPgTimestamptz(entry.CreatedAt),
		UpdatedAt:     timeToPgTimestamptz(entry.UpdatedAt),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrSequenceConflict, entry.EntryNumber)
		}
		return err
	}

	return insertLines(ctx, q, entry)
}

// GetByID retrieves an entry with its lines.
func (r *JournalRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.JournalEntry, error) {
	q := queries(r.db, tx)

	row, err := q.GetJournalEntry(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	return loadLines(ctx, q, row)
}

// GetByIDForUpdate retrieves an entry with a FOR UPDATE lock on its header.
func (r *JournalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.JournalEntry, error) {
	q := queries(r.db, tx)

	row, err := q.GetJournalEntryForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	return loadLines(ctx, q, row)
}

// UpdateStatus writes the status and its posting or cancellation stamps.
func (r *JournalRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	return queries(r.db, tx).UpdateJournalEntryStatus(ctx, generated.UpdateJournalEntryStatusParams{
		ID:           entry.ID,
		Status:       string(entry.Status),
		PostedBy:     textOrNull(entry.PostedBy),
		PostedAt:     optionalTimestamptz(entry.PostedAt),
		CancelledBy:  textOrNull(entry.CancelledBy),
		CancelledAt:  optionalTimestamptz(entry.CancelledAt),
		CancelReason: textOrNull(entry.CancelReason),
		UpdatedAt:    timeToPgTimestamptz(entry.UpdatedAt),
	})
}

// ReplaceDraft rewrites the header, number and all lines of a draft.
func (r *JournalRepository) ReplaceDraft(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	q := queries(r.db, tx)

	refType, refID := referenceToText(entry.Reference)
	if err := q.UpdateJournalEntryDraft(ctx, generated.UpdateJournalEntryDraftParams{
		ID:            entry.ID,
		EntryDate:     dateToPgDate(entry.EntryDate),
		Narration:     entry.Narration,
		ReferenceType: refType,
		ReferenceID:   refID,
		TotalAmount:   decimalToNumeric(entry.TotalAmount),
		UpdatedAt:     timeToPgTimestamptz(entry.UpdatedAt),
		EntryNumber:   entry.EntryNumber,
	}); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrSequenceConflict, entry.EntryNumber)
		}
		return err
	}
	if err := q.DeleteJournalLines(ctx, entry.ID); err != nil {
		return err
	}

	return insertLines(ctx, q, entry)
}

func insertLines(ctx context.Context, q *generated.Queries, entry *domain.JournalEntry) error {
	for i, l := range entry.Lines {
		lineNo := l.LineNo
		if lineNo == 0 {
			lineNo = i + 1
		}
		if err := q.CreateJournalLine(ctx, generated.CreateJournalLineParams{
			ID:          l.ID,
			EntryID:     entry.ID,
			AccountID:   l.AccountID,
			LineNo:      int32(lineNo),
			Description: l.Description,
			Debit:       decimalToNumeric(l.Debit),
			Credit:      decimalToNumeric(l.Credit),
		}); err != nil {
			return fmt.Errorf("insert line %d: %w", lineNo, err)
		}
	}
	return nil
}

func loadLines(ctx context.Context, q *generated.Queries, row generated.JournalEntry) (*domain.JournalEntry, error) {
	lines, err := q.ListJournalLines(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	entry := rowToJournalEntry(row)
	entry.Lines = make([]domain.JournalLine, 0, len(lines))
	for _, l := range lines {
		entry.Lines = append(entry.Lines, domain.JournalLine{
			ID:          l.ID,
			EntryID:     l.EntryID,
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       numericToDecimal(l.Debit),
			Credit:      numericToDecimal(l.Credit),
			LineNo:      int(l.LineNo),
		})
	}

	return entry, nil
}

func rowToJournalEntry(row generated.JournalEntry) *domain.JournalEntry {
	entry := &domain.JournalEntry{
		ID:           row.ID,
		ScopeID:      row.ScopeID,
		EntryNumber:  row.EntryNumber,
		EntryDate:    row.EntryDate.Time,
		Narration:    row.Narration,
		Status:       domain.EntryStatus(row.Status),
		TotalAmount:  numericToDecimal(row.TotalAmount),
		CreatedBy:    row.CreatedBy,
		PostedBy:     row.PostedBy.String,
		PostedAt:     timestamptzPtr(row.PostedAt),
		CancelledBy:  row.CancelledBy.String,
		CancelledAt:  timestamptzPtr(row.CancelledAt),
		CancelReason: row.CancelReason.String,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
	if row.ReferenceType.Valid && row.ReferenceID.Valid {
		entry.Reference = &domain.Reference{Type: row.ReferenceType.String, ID: row.ReferenceID.String}
	}
	return entry
}

func referenceToText(ref *domain.Reference) (refType, refID pgtype.Text) {
	if ref == nil {
		return refType, refID
	}
	return textOrNull(ref.Type), textOrNull(ref.ID)
}

// SequenceRepository implements usecase.SequenceRepository on the
// entry_sequences counter table.
type SequenceRepository struct {
	db generated.DBTX
}

// NewSequenceRepository creates a new SequenceRepository.
func NewSequenceRepository(db generated.DBTX) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments and returns the counter for (scope, year, prefix). The
// upsert holds the row lock until tx ends, so concurrent callers queue.
func (r *SequenceRepository) Next(ctx context.Context, tx usecase.Transaction, scopeID string, year int, prefix string) (int64, error) {
	return queries(r.db, tx).NextEntrySequence(ctx, generated.NextEntrySequenceParams{
		ScopeID:    scopeID,
		FiscalYear: int32(year),
		Prefix:     prefix,
	})
}
