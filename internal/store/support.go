package store

import (
	"context"
	"fmt"
	"time"

	"greenloop/internal/utils"
	"greenloop/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const supportTableName = "greenloop.supports"

// Partial unique index: one non-terminal support per (initiative, giver).
const supportActiveConstraint = "supports_active_giver_idx"

var supportColumns = utils.StructTagValues(types.Support{})

var supportTerminalStatuses = []string{
	string(types.SupportStatusCompleted),
	string(types.SupportStatusDeclined),
	string(types.SupportStatusCancelled),
}

type SupportRepository struct {
	pool *pgxpool.Pool
}

func NewSupportRepository(pool *pgxpool.Pool) *SupportRepository {
	return &SupportRepository{pool: pool}
}

func (r *SupportRepository) Support(ctx context.Context, supportID string) (*types.Support, error) {

	query, args, err := psql().Select(supportColumns...).From(supportTableName).
		Where(sq.Eq{"id": supportID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate support query: %w", err)
	}

	var support = new(types.Support)
	err = pgxscan.Get(ctx, r.pool, support, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrSupportNotFound
	}

	return support, nil
}

// SupportFilter narrows the Supports listing. Zero values mean "any".
type SupportFilter struct {
	InitiativeID string              `form:"initiative_id"`
	PartyID      string              `form:"party_id"`
	Status       types.SupportStatus `form:"status"`
}

func (r *SupportRepository) Supports(ctx context.Context, filter SupportFilter) ([]*types.Support, error) {

	builder := psql().Select(supportColumns...).From(supportTableName).
		OrderBy("created_at desc")

	if filter.InitiativeID != "" {
		builder = builder.Where(sq.Eq{"initiative_id": filter.InitiativeID})
	}
	if filter.PartyID != "" {
		builder = builder.Where(sq.Or{
			sq.Eq{"giver_id": filter.PartyID},
			sq.Eq{"collector_id": filter.PartyID},
		})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate supports query: %w", err)
	}

	var supports = make([]*types.Support, 0)
	err = pgxscan.Select(ctx, r.pool, &supports, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to list supports")
	}

	return supports, nil
}

// CreateSupport inserts a Pending support. The partial unique index on
// (initiative_id, giver_id, non-terminal status) keeps a giver from holding
// two open pledges against the same initiative.
func (r *SupportRepository) CreateSupport(ctx context.Context, support *types.Support) error {

	now := time.Now()
	if support.ID == "" {
		support.ID = utils.NanoID()
	}
	support.CreatedAt = now
	support.UpdatedAt = now

	supportMap := utils.StructToMap(support)

	query, args, err := psql().Insert(supportTableName).SetMap(supportMap).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert support query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if isUniqueViolation(err, supportActiveConstraint) {
		return types.ErrActiveSupportExists
	}

	return utils.ErrorWrapOrNil(err, "failed to create support")
}

// UpdateSupport writes the record conditional on its status still being
// fromStatus. Zero rows affected returns types.ErrStatusConflict.
func (r *SupportRepository) UpdateSupport(ctx context.Context, support *types.Support, fromStatus types.SupportStatus) error {

	support.UpdatedAt = time.Now()

	supportMap := utils.StructToMap(support)
	delete(supportMap, "id")
	delete(supportMap, "created_at")

	query, args, err := psql().Update(supportTableName).SetMap(supportMap).
		Where(sq.Eq{"id": support.ID, "status": fromStatus}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update support query for support %s: %w", support.ID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return utils.ErrorWrapOrNil(err, "failed to update support")
	}

	if tag.RowsAffected() == 0 {
		return types.ErrStatusConflict
	}

	return nil
}
