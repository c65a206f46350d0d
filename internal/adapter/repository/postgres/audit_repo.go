package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/infrastructure/postgres/generated"
	"github.com/iho/orgledger/internal/usecase"
)

// AuditRepository implements audit log persistence.
type AuditRepository struct {
	db generated.DBTX
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db generated.DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts an audit log entry inside tx, so the record commits or
// rolls back with the change it describes.
func (r *AuditRepository) Create(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	beforeState, err := marshalState(log.BeforeState)
	if err != nil {
		return err
	}
	afterState, err := marshalState(log.AfterState)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_logs (
			id, scope_id, actor, action, resource_type, resource_id,
			reason, before_state, after_state, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = querier(r.db, tx).Exec(ctx, query,
		log.ID,
		log.ScopeID,
		log.Actor,
		string(log.Action),
		log.ResourceType,
		log.ResourceID,
		log.Reason,
		beforeState,
		afterState,
		timeToPgTimestamptz(log.CreatedAt),
	)

	return err
}

// GetByResourceID returns the audit trail of one resource, oldest first.
func (r *AuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, scope_id, actor, action, resource_type, resource_id,
		       reason, before_state, after_state, created_at
		FROM audit_logs
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var (
			log                     domain.AuditLog
			action                  string
			beforeState, afterState []byte
		)

		if err := rows.Scan(
			&log.ID,
			&log.ScopeID,
			&log.Actor,
			&action,
			&log.ResourceType,
			&log.ResourceID,
			&log.Reason,
			&beforeState,
			&afterState,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}

		log.Action = domain.AuditAction(action)
		if beforeState != nil {
			_ = json.Unmarshal(beforeState, &log.BeforeState)
		}
		if afterState != nil {
			_ = json.Unmarshal(afterState, &log.AfterState)
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

func marshalState(state domain.JSON) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}
