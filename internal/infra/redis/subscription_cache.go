package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/usecase"
)

var _ usecase.SubscriptionCache = (*SubscriptionCache)(nil)

// SubscriptionCache keeps the raw subscription state per user under a short
// TTL. Only the state is cached, never an evaluated tier, so every read still
// checks the expiry against the clock.
type SubscriptionCache struct {
	rdb RedisClient
	ttl time.Duration
	log *zerolog.Logger
}

func NewSubscriptionCache(rdb RedisClient, ttl time.Duration, logger *zerolog.Logger) *SubscriptionCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	l := logger.With().Str("component", "SubscriptionCache").Logger()
	return &SubscriptionCache{rdb: rdb, ttl: ttl, log: &l}
}

func key(userID string) string { return "sub:state:" + userID }

func (c *SubscriptionCache) Get(ctx context.Context, userID string) (model.SubscriptionState, bool) {
	raw, err := c.rdb.Get(ctx, key(userID))
	if err != nil {
		return model.SubscriptionState{}, false
	}
	var s model.SubscriptionState
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		c.log.Warn().Err(err).Str("user_id", userID).Msg("dropping undecodable cache entry")
		_ = c.rdb.Del(ctx, key(userID))
		return model.SubscriptionState{}, false
	}
	return s, true
}

func (c *SubscriptionCache) Set(ctx context.Context, userID string, s model.SubscriptionState) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(userID), b, c.ttl)
}

func (c *SubscriptionCache) Invalidate(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, key(userID))
}
