package repository

import (
	"context"

	"content-subscription-platform/internal/domain/model"
)

type VideoRepository interface {
	Save(ctx context.Context, tx Tx, v *model.Video) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Video, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.Video, error)
}
