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

const postTableName = "greenloop.posts"

var postColumns = utils.StructTagValues(types.Post{})

// PostRepository is the Postgres-backed post registry. The coordination core
// consumes it through the narrow interfaces the managers declare.
type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) Post(ctx context.Context, postID string) (*types.Post, error) {

	query, args, err := psql().Select(postColumns...).From(postTableName).
		Where(sq.Eq{"id": postID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate post query: %w", err)
	}

	var post = new(types.Post)
	err = pgxscan.Get(ctx, r.pool, post, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrPostNotFound
	}

	return post, nil
}

func (r *PostRepository) SetStatus(ctx context.Context, postID string, status types.PostStatus) error {

	query, args, err := psql().Update(postTableName).
		SetMap(map[string]any{
			"status":     status,
			"updated_at": time.Now(),
		}).
		Where(sq.Eq{"id": postID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate post status query for post %s: %w", postID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return utils.ErrorWrapOrNil(err, "failed to update post status")
	}

	if tag.RowsAffected() == 0 {
		return types.ErrPostNotFound
	}

	return nil
}

func (r *PostRepository) CreatePost(ctx context.Context, post *types.Post) error {

	now := time.Now()
	if post.ID == "" {
		post.ID = utils.NanoID()
	}
	post.CreatedAt = now
	post.UpdatedAt = now

	postMap := utils.StructToMap(post)

	query, args, err := psql().Insert(postTableName).SetMap(postMap).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert post query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create post")
}
