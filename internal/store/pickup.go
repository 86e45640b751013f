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

const pickupTableName = "greenloop.pickups"

// Name of the partial unique index enforcing at most one non-terminal pickup
// per post (see scripts/schema.sql).
const pickupActiveConstraint = "pickups_active_post_idx"

var pickupColumns = utils.StructTagValues(types.Pickup{})

var pickupTerminalStatuses = []string{
	string(types.PickupStatusCompleted),
	string(types.PickupStatusCancelled),
}

type PickupRepository struct {
	pool *pgxpool.Pool
}

func NewPickupRepository(pool *pgxpool.Pool) *PickupRepository {
	return &PickupRepository{pool: pool}
}

func (r *PickupRepository) Pickup(ctx context.Context, pickupID string) (*types.Pickup, error) {

	query, args, err := psql().Select(pickupColumns...).From(pickupTableName).
		Where(sq.Eq{"id": pickupID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pickup query: %w", err)
	}

	var pickup = new(types.Pickup)
	err = pgxscan.Get(ctx, r.pool, pickup, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrPickupNotFound
	}

	return pickup, nil
}

// ActivePickupByPost returns the one non-terminal pickup for a post, or
// types.ErrPickupNotFound when the post has no active claim.
func (r *PickupRepository) ActivePickupByPost(ctx context.Context, postID string) (*types.Pickup, error) {

	query, args, err := psql().Select(pickupColumns...).From(pickupTableName).
		Where(sq.Eq{"post_id": postID}).
		Where(sq.NotEq{"status": pickupTerminalStatuses}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate active pickup query: %w", err)
	}

	var pickup = new(types.Pickup)
	err = pgxscan.Get(ctx, r.pool, pickup, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrPickupNotFound
	}

	return pickup, nil
}

// PickupFilter narrows the Pickups listing. Zero values mean "any".
type PickupFilter struct {
	PostID  string             `form:"post_id"`
	PartyID string             `form:"party_id"`
	Status  types.PickupStatus `form:"status"`
}

func (r *PickupRepository) Pickups(ctx context.Context, filter PickupFilter) ([]*types.Pickup, error) {

	builder := psql().Select(pickupColumns...).From(pickupTableName).
		OrderBy("created_at desc")

	if filter.PostID != "" {
		builder = builder.Where(sq.Eq{"post_id": filter.PostID})
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
		return nil, fmt.Errorf("failed to generate pickups query: %w", err)
	}

	var pickups = make([]*types.Pickup, 0)
	err = pgxscan.Select(ctx, r.pool, &pickups, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to list pickups")
	}

	return pickups, nil
}

// UpcomingPickups returns committed pickups scheduled inside [from, to],
// used by the reminder sweep. Read-only.
func (r *PickupRepository) UpcomingPickups(ctx context.Context, from, to time.Time) ([]*types.Pickup, error) {

	query, args, err := psql().Select(pickupColumns...).From(pickupTableName).
		Where(sq.Eq{"status": []string{
			string(types.PickupStatusConfirmed),
			string(types.PickupStatusInTransit),
			string(types.PickupStatusArrived),
		}}).
		Where(sq.GtOrEq{"pickup_date": from.AddDate(0, 0, -1)}).
		Where(sq.LtOrEq{"pickup_date": to.AddDate(0, 0, 1)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate upcoming pickups query: %w", err)
	}

	var pickups = make([]*types.Pickup, 0)
	err = pgxscan.Select(ctx, r.pool, &pickups, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to list upcoming pickups")
	}

	// pickup_date is a date column; trim to the exact window here.
	out := pickups[:0]
	for _, p := range pickups {
		at, err := p.ScheduledAt()
		if err != nil {
			continue
		}
		if !at.Before(from) && !at.After(to) {
			out = append(out, p)
		}
	}

	return out, nil
}

// CreatePickup inserts a Proposed pickup. The partial unique index on
// (post_id, non-terminal status) makes the claim-exclusivity check atomic:
// a concurrent duplicate surfaces as types.ErrActivePickupExists.
func (r *PickupRepository) CreatePickup(ctx context.Context, pickup *types.Pickup) error {

	now := time.Now()
	if pickup.ID == "" {
		pickup.ID = utils.NanoID()
	}
	pickup.CreatedAt = now
	pickup.UpdatedAt = now

	pickupMap := utils.StructToMap(pickup)

	query, args, err := psql().Insert(pickupTableName).SetMap(pickupMap).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert pickup query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if isUniqueViolation(err, pickupActiveConstraint) {
		return types.ErrActivePickupExists
	}

	return utils.ErrorWrapOrNil(err, "failed to create pickup")
}

// UpdatePickup writes the record conditional on its status still being
// fromStatus (compare-and-set). A zero-row update means the pickup moved
// underneath the caller and returns types.ErrStatusConflict.
func (r *PickupRepository) UpdatePickup(ctx context.Context, pickup *types.Pickup, fromStatus types.PickupStatus) error {

	pickup.UpdatedAt = time.Now()

	pickupMap := utils.StructToMap(pickup)
	delete(pickupMap, "id")
	delete(pickupMap, "created_at")

	query, args, err := psql().Update(pickupTableName).SetMap(pickupMap).
		Where(sq.Eq{"id": pickup.ID, "status": fromStatus}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update pickup query for pickup %s: %w", pickup.ID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return utils.ErrorWrapOrNil(err, "failed to update pickup")
	}

	if tag.RowsAffected() == 0 {
		return types.ErrStatusConflict
	}

	return nil
}
