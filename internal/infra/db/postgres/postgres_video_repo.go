package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-subscription-platform/internal/domain"
	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/domain/ports/repository"
)

var _ repository.VideoRepository = (*videoRepo)(nil)

type videoRepo struct{ pool *pgxpool.Pool }

func NewVideoRepo(pool *pgxpool.Pool) *videoRepo {
	return &videoRepo{pool: pool}
}

func (r *videoRepo) Save(ctx context.Context, tx repository.Tx, v *model.Video) error {
	const q = `
INSERT INTO videos (id, title, required_tier, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET title=$2, required_tier=$3;`

	_, err := execSQL(ctx, r.pool, tx, q, v.ID, v.Title, v.RequiredTier, v.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *videoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Video, error) {
	const q = `SELECT id, title, required_tier, created_at FROM videos WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	v := &model.Video{}
	if err := row.Scan(&v.ID, &v.Title, &v.RequiredTier, &v.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return v, nil
}

func (r *videoRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Video, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT id, title, required_tier, created_at FROM videos ORDER BY created_at DESC OFFSET $1 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, offset, limit)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()

	var out []*model.Video
	for rows.Next() {
		v := new(model.Video)
		if err := rows.Scan(&v.ID, &v.Title, &v.RequiredTier, &v.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, v)
	}
	return out, nil
}
