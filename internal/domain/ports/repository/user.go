package repository

import (
	"context"
	"time"

	"content-subscription-platform/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	// FindByID locks the row (FOR UPDATE) when called inside a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.User, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.User, error)
	Count(ctx context.Context, tx Tx) (int, error)
	CountActiveSubscriptions(ctx context.Context, tx Tx, now time.Time) (int, error)
	// CollapseExpired resets every subscription whose expiry has passed back to
	// the none/nil form and returns how many rows changed. Operational sweep;
	// correctness rests on the lazy collapse at read time.
	CollapseExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
}
