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

// MappingRepository implements usecase.MappingRepository.
type MappingRepository struct {
	db generated.DBTX
}

// NewMappingRepository creates a new MappingRepository.
func NewMappingRepository(db generated.DBTX) *MappingRepository {
	return &MappingRepository{db: db}
}

// Get returns the mapping for key, or domain.ErrMappingNotFound.
func (r *MappingRepository) Get(ctx context.Context, tx usecase.Transaction, scopeID string, key domain.MappingKey) (*domain.AccountMapping, error) {
	var (
		m         domain.AccountMapping
		rawKey    string
		updatedAt pgtype.Timestamptz
	)
	err := querier(r.db, tx).QueryRow(ctx, `
		SELECT scope_id, mapping_key, account_code, updated_at
		FROM account_mappings WHERE scope_id = $1 AND mapping_key = $2`,
		scopeID, string(key),
	).Scan(&m.ScopeID, &rawKey, &m.AccountCode, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMappingNotFound, key)
		}
		return nil, err
	}

	m.Key = domain.MappingKey(rawKey)
	m.UpdatedAt = updatedAt.Time
	return &m, nil
}

// Upsert creates or replaces the mapping for (scope, key).
func (r *MappingRepository) Upsert(ctx context.Context, tx usecase.Transaction, m *domain.AccountMapping) error {
	_, err := querier(r.db, tx).Exec(ctx, `
		INSERT INTO account_mappings (scope_id, mapping_key, account_code, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope_id, mapping_key)
		DO UPDATE SET account_code = EXCLUDED.account_code, updated_at = EXCLUDED.updated_at`,
		m.ScopeID, string(m.Key), m.AccountCode, timeToPgTimestamptz(m.UpdatedAt),
	)
	return err
}
