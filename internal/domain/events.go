package domain

import "time"

// Event types
const (
	EventTypeJournalPosted      = "journal.posted"
	EventTypeJournalCancelled   = "journal.cancelled"
	EventTypeDepreciationPosted = "depreciation.posted"
	EventTypePeriodClosed       = "period.closed"
)

// Aggregate types
const (
	AggregateTypeJournalEntry = "journal_entry"
	AggregateTypeSchedule     = "depreciation_schedule"
	AggregateTypeClosing      = "period_closing"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// JournalPostedEvent payload
type JournalPostedEvent struct {
	EntryID     string `json:"entry_id"`
	ScopeID     string `json:"scope_id"`
	EntryNumber string `json:"entry_number"`
	EntryDate   string `json:"entry_date"`
	TotalAmount string `json:"total_amount"`
	PostedBy    string `json:"posted_by"`
}

// JournalCancelledEvent payload
type JournalCancelledEvent struct {
	EntryID     string `json:"entry_id"`
	ScopeID     string `json:"scope_id"`
	EntryNumber string `json:"entry_number"`
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelled_by"`
}

// DepreciationPostedEvent payload
type DepreciationPostedEvent struct {
	ScheduleID     string `json:"schedule_id"`
	AssetID        string `json:"asset_id"`
	JournalEntryID string `json:"journal_entry_id"`
	Amount         string `json:"amount"`
	ClosingValue   string `json:"closing_book_value"`
}

// PeriodClosedEvent payload
type PeriodClosedEvent struct {
	ClosingID       string `json:"closing_id"`
	ScopeID         string `json:"scope_id"`
	FinancialYearID string `json:"financial_year_id"`
	Kind            string `json:"kind"`
	PeriodStart     string `json:"period_start"`
	PeriodEnd       string `json:"period_end"`
	NetSurplus      string `json:"net_surplus"`
	JournalEntryID  string `json:"journal_entry_id,omitempty"`
}

// NewOutboxEvent builds an unpublished event with payload flattened to a map.
func NewOutboxEvent(id, aggregateType, aggregateID, eventType string, payload any, at time.Time) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       MarshalState(payload),
		CreatedAt:     at,
	}
}
