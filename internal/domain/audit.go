package domain

import (
	"encoding/json"
	"time"
)

// AuditLog is an immutable record of a ledger mutation.
type AuditLog struct {
	ID           string
	ScopeID      string
	Actor        string      // Who performed the action
	Action       AuditAction // What happened (journal.post, account.update, ...)
	ResourceType string      // account, journal_entry, depreciation_schedule, period_closing
	ResourceID   string
	Reason       string
	BeforeState  JSON
	AfterState   JSON
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	// Account actions
	AuditActionAccountCreate     AuditAction = "account.create"
	AuditActionAccountUpdate     AuditAction = "account.update"
	AuditActionAccountDeactivate AuditAction = "account.deactivate"

	// Journal actions
	AuditActionJournalCreate AuditAction = "journal.create"
	AuditActionJournalUpdate AuditAction = "journal.update"
	AuditActionJournalPost   AuditAction = "journal.post"
	AuditActionJournalCancel AuditAction = "journal.cancel"

	// Depreciation actions
	AuditActionDepreciationCalculate AuditAction = "depreciation.calculate"
	AuditActionDepreciationPost      AuditAction = "depreciation.post"
	AuditActionDepreciationCancel    AuditAction = "depreciation.cancel"

	// Closing actions
	AuditActionCloseMonth AuditAction = "period.close_month"
	AuditActionCloseYear  AuditAction = "period.close_year"
)

// Resource types
const (
	ResourceAccount       = "account"
	ResourceJournalEntry  = "journal_entry"
	ResourceSchedule      = "depreciation_schedule"
	ResourcePeriodClosing = "period_closing"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}
