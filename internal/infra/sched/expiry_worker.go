package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"content-subscription-platform/internal/domain/ports/repository"
	"content-subscription-platform/internal/infra/metrics"
)

// ExpiryWorker sweeps expired subscriptions back to the unsubscribed form.
// Entitlement checks already collapse lazily at read time; the sweep only
// keeps the stored data and the active-subscription counters honest for
// accounts nobody reads.
type ExpiryWorker struct {
	users    repository.UserRepository
	interval time.Duration
	log      *zerolog.Logger
}

func NewExpiryWorker(users repository.UserRepository, interval time.Duration, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{users: users, interval: interval, log: &l}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpiryWorker) tick(ctx context.Context) {
	n, err := w.users.CollapseExpired(ctx, repository.NoTX, time.Now())
	if err != nil {
		w.log.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	if n > 0 {
		metrics.IncSubscriptionsExpired(n)
		w.log.Info().Int("collapsed", n).Msg("expired subscriptions collapsed")
	}
}
