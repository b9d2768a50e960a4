package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/domain/ports/repository"
)

var _ VideoUseCase = (*videoUC)(nil)

// VideoUseCase manages the content catalog. Creation is an admin operation.
type VideoUseCase interface {
	Create(ctx context.Context, title string, requiredTier model.Tier) (*model.Video, error)
	FindByID(ctx context.Context, id string) (*model.Video, error)
	List(ctx context.Context, offset, limit int) ([]*model.Video, error)
}

type videoUC struct {
	videos repository.VideoRepository
	log    *zerolog.Logger
}

func NewVideoUseCase(videos repository.VideoRepository, logger *zerolog.Logger) *videoUC {
	l := logger.With().Str("component", "VideoUC").Logger()
	return &videoUC{videos: videos, log: &l}
}

func (u *videoUC) Create(ctx context.Context, title string, requiredTier model.Tier) (*model.Video, error) {
	v, err := model.NewVideo("", title, requiredTier)
	if err != nil {
		return nil, err
	}
	if err := u.videos.Save(ctx, repository.NoTX, v); err != nil {
		return nil, err
	}
	u.log.Info().Str("video_id", v.ID).Str("required_tier", string(requiredTier)).Msg("video added")
	return v, nil
}

func (u *videoUC) FindByID(ctx context.Context, id string) (*model.Video, error) {
	return u.videos.FindByID(ctx, repository.NoTX, id)
}

func (u *videoUC) List(ctx context.Context, offset, limit int) ([]*model.Video, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.videos.List(ctx, repository.NoTX, offset, limit)
}
