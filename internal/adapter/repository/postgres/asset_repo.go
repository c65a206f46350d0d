package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/infrastructure/postgres/generated"
	"github.com/iho/orgledger/internal/usecase"
)

// AssetRepository implements usecase.AssetRepository. The asset register is
// owned elsewhere; the ledger only reads it and moves book values.
type AssetRepository struct {
	db generated.DBTX
}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository(db generated.DBTX) *AssetRepository {
	return &AssetRepository{db: db}
}

const selectAsset = `
	SELECT id, scope_id, code, name, category_code, depreciation_method, status,
	       cost, salvage_value, accumulated_depreciation, current_book_value,
	       wdv_rate, declining_rate, total_estimated_units, interest_rate,
	       useful_life_years, compounding_per_year, is_depreciable, updated_at
	FROM assets WHERE id = $1`

// GetByID retrieves an asset by ID.
func (r *AssetRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Asset, error) {
	return scanAsset(querier(r.db, tx).QueryRow(ctx, selectAsset, id))
}

// GetByIDForUpdate retrieves an asset by ID with a FOR UPDATE lock.
func (r *AssetRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Asset, error) {
	return scanAsset(querier(r.db, tx).QueryRow(ctx, selectAsset+` FOR UPDATE`, id))
}

// UpdateBookValue writes accumulated depreciation and current book value.
func (r *AssetRepository) UpdateBookValue(ctx context.Context, tx usecase.Transaction, asset *domain.Asset) error {
	_, err := querier(r.db, tx).Exec(ctx, `
		UPDATE assets
		SET accumulated_depreciation = $2, current_book_value = $3, updated_at = $4
		WHERE id = $1`,
		asset.ID,
		decimalToNumeric(asset.AccumulatedDepreciation),
		decimalToNumeric(asset.CurrentBookValue),
		timeToPgTimestamptz(asset.UpdatedAt),
	)
	return err
}

func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var (
		a                                      domain.Asset
		method, status                         string
		cost, salvage, accumulated, book       pgtype.Numeric
		wdvRate, decliningRate, units, intRate pgtype.Numeric
		life, compounding                      int32
		updatedAt                              pgtype.Timestamptz
	)
	err := row.Scan(
		&a.ID, &a.ScopeID, &a.Code, &a.Name, &a.CategoryCode, &method, &status,
		&cost, &salvage, &accumulated, &book,
		&wdvRate, &decliningRate, &units, &intRate,
		&life, &compounding, &a.IsDepreciable, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAssetNotFound
		}
		return nil, err
	}

	a.Method = domain.DepreciationMethod(method)
	a.Status = domain.AssetStatus(status)
	a.Cost = numericToDecimal(cost)
	a.SalvageValue = numericToDecimal(salvage)
	a.AccumulatedDepreciation = numericToDecimal(accumulated)
	a.CurrentBookValue = numericToDecimal(book)
	a.WDVRate = numericToDecimal(wdvRate)
	a.DecliningRate = numericToDecimal(decliningRate)
	a.TotalEstimatedUnits = numericToDecimal(units)
	a.InterestRate = numericToDecimal(intRate)
	a.UsefulLifeYears = int(life)
	a.CompoundingPerYear = int(compounding)
	a.UpdatedAt = updatedAt.Time

	return &a, nil
}
