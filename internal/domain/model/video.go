package model

import (
	"time"

	"content-subscription-platform/internal/domain"

	"github.com/google/uuid"
)

// Video is a piece of gated content. Catalog management lives elsewhere; the
// core only needs the tier required to watch it.
type Video struct {
	ID           string
	Title        string
	RequiredTier Tier
	CreatedAt    time.Time
}

func NewVideo(id, title string, required Tier) (*Video, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if title == "" || required == TierNone {
		return nil, domain.ErrInvalidArgument
	}
	return &Video{ID: id, Title: title, RequiredTier: required, CreatedAt: time.Now()}, nil
}
