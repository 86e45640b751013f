package store

import (
	"context"
	"fmt"

	"greenloop/internal/utils"
	"greenloop/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const progressTableName = "greenloop.support_material_progress"

// ProgressRepository holds the initiative progress ledger. Each accepted
// material of a completed support lands here exactly once; running totals are
// derived by aggregation, so retrying a completion cannot double-count.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// RecordOnce inserts a progress entry, ignoring duplicates on the
// (support_id, material_id) primary key.
func (r *ProgressRepository) RecordOnce(ctx context.Context, rec *types.MaterialProgress) error {
	query := `
		INSERT INTO greenloop.support_material_progress
			(support_id, material_id, initiative_id, material_name, quantity, unit)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (support_id, material_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		rec.SupportID, rec.MaterialID, rec.InitiativeID, rec.MaterialName, rec.Quantity, rec.Unit)
	if err != nil {
		return fmt.Errorf("record material progress: %w", err)
	}

	return nil
}

func (r *ProgressRepository) TotalsByInitiative(ctx context.Context, initiativeID string) ([]*types.MaterialTotal, error) {

	query, args, err := psql().
		Select("material_name", "unit", "sum(quantity) as total", "count(distinct support_id) as supports").
		From(progressTableName).
		Where(sq.Eq{"initiative_id": initiativeID}).
		GroupBy("material_name", "unit").
		OrderBy("material_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate progress totals query: %w", err)
	}

	var totals = make([]*types.MaterialTotal, 0)
	err = pgxscan.Select(ctx, r.pool, &totals, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to aggregate material progress")
	}

	return totals, nil
}
