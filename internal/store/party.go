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

const partyTableName = "greenloop.parties"

var partyColumns = utils.StructTagValues(types.Party{})

// PartyRepository is the Postgres-backed party directory: identities and
// giver/collector role flags.
type PartyRepository struct {
	pool *pgxpool.Pool
}

func NewPartyRepository(pool *pgxpool.Pool) *PartyRepository {
	return &PartyRepository{pool: pool}
}

func (r *PartyRepository) Party(ctx context.Context, partyID string) (*types.Party, error) {

	query, args, err := psql().Select(partyColumns...).From(partyTableName).
		Where(sq.Eq{"id": partyID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate party query: %w", err)
	}

	var party = new(types.Party)
	err = pgxscan.Get(ctx, r.pool, party, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrPartyNotFound
	}

	return party, nil
}

func (r *PartyRepository) CreateParty(ctx context.Context, party *types.Party) error {

	now := time.Now()
	if party.ID == "" {
		party.ID = utils.NanoID()
	}
	party.CreatedAt = now
	party.UpdatedAt = now

	partyMap := utils.StructToMap(party)

	query, args, err := psql().Insert(partyTableName).SetMap(partyMap).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert party query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create party")
}
