package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-subscription-platform/internal/domain"
	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, username, email, registered_at, last_active_at, is_admin, subscription_tier, subscription_expires_at`

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (
  id, username, email, registered_at, last_active_at, is_admin, subscription_tier, subscription_expires_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (id) DO UPDATE SET
  username=$2, email=$3, last_active_at=$5, is_admin=$6, subscription_tier=$7, subscription_expires_at=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Username, u.Email, u.RegisteredAt, u.LastActiveAt, u.IsAdmin, u.Subscription.Tier, u.Subscription.ExpiresAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, username)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.User, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY registered_at DESC OFFSET $1 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, offset, limit)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u := new(model.User)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.RegisteredAt, &u.LastActiveAt, &u.IsAdmin, &u.Subscription.Tier, &u.Subscription.ExpiresAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *userRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *userRepo) CountActiveSubscriptions(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM users WHERE subscription_tier <> 'none' AND subscription_expires_at > $1;`
	row, err := pickRow(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *userRepo) CollapseExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `UPDATE users SET subscription_tier='none', subscription_expires_at=NULL
WHERE subscription_tier <> 'none' AND subscription_expires_at <= $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.RegisteredAt, &u.LastActiveAt, &u.IsAdmin, &u.Subscription.Tier, &u.Subscription.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}
