package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/domain/ports/repository"
	"content-subscription-platform/internal/infra/metrics"
)

var _ EntitlementUseCase = (*entitlementUC)(nil)

// SubscriptionCache fronts hot entitlement reads. It stores the raw state, not
// the evaluated tier, so expiry is always re-evaluated against the clock and a
// cached entry can never keep an expired subscription alive.
type SubscriptionCache interface {
	Get(ctx context.Context, userID string) (model.SubscriptionState, bool)
	Set(ctx context.Context, userID string, s model.SubscriptionState) error
	Invalidate(ctx context.Context, userID string) error
}

// EntitlementUseCase answers the content-serving path's access questions.
type EntitlementUseCase interface {
	EffectiveTier(ctx context.Context, userID string, now time.Time) (model.Tier, error)
	CanAccess(ctx context.Context, userID, videoID string) (bool, model.Tier, error)
}

type entitlementUC struct {
	users  repository.UserRepository
	videos repository.VideoRepository
	cache  SubscriptionCache
	log    *zerolog.Logger
}

func NewEntitlementUseCase(
	users repository.UserRepository,
	videos repository.VideoRepository,
	cache SubscriptionCache,
	logger *zerolog.Logger,
) *entitlementUC {
	l := logger.With().Str("component", "EntitlementUC").Logger()
	return &entitlementUC{users: users, videos: videos, cache: cache, log: &l}
}

// EffectiveTier evaluates the user's entitlement at the given instant. Expired
// state collapses to none and the collapse is written back at read time, so
// the stored invariant (tier none <=> expiry nil) holds without a background
// sweep.
func (u *entitlementUC) EffectiveTier(ctx context.Context, userID string, now time.Time) (model.Tier, error) {
	if state, ok := u.cache.Get(ctx, userID); ok {
		metrics.IncTierCache(true)
		eff := model.EffectiveTier(state, now)
		if eff != model.TierNone || state.Tier == model.TierNone {
			return eff, nil
		}
		// Cached state just expired: fall through to collapse and persist.
	} else {
		metrics.IncTierCache(false)
	}

	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return model.TierNone, err
	}

	eff := model.EffectiveTier(user.Subscription, now)
	if user.Subscription.Collapse(now) {
		if err := u.users.Save(ctx, repository.NoTX, user); err != nil {
			// The read already collapsed in memory; the write-back retries on
			// the next read.
			u.log.Warn().Err(err).Str("user_id", userID).Msg("expiry write-back failed")
		}
		if err := u.cache.Invalidate(ctx, userID); err != nil {
			u.log.Warn().Err(err).Str("user_id", userID).Msg("cache invalidation failed")
		}
		return eff, nil
	}

	if err := u.cache.Set(ctx, userID, user.Subscription); err != nil {
		u.log.Debug().Err(err).Str("user_id", userID).Msg("cache set failed")
	}
	return eff, nil
}

func (u *entitlementUC) CanAccess(ctx context.Context, userID, videoID string) (bool, model.Tier, error) {
	video, err := u.videos.FindByID(ctx, repository.NoTX, videoID)
	if err != nil {
		return false, model.TierNone, err
	}
	tier, err := u.EffectiveTier(ctx, userID, time.Now())
	if err != nil {
		return false, model.TierNone, err
	}
	allowed := model.HasAccess(tier, video.RequiredTier)
	metrics.IncAccessCheck(allowed)
	return allowed, tier, nil
}
