package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"content-subscription-platform/internal/domain/ports/repository"
	"content-subscription-platform/internal/usecase"
)

// PaymentReconciler periodically polls the gateway for payments that are
// neither terminal nor recently updated. This is the pull side of the engine:
// it recovers payments whose callbacks were lost or arrived while the process
// was down.
type PaymentReconciler struct {
	uc         usecase.ReconcileUseCase
	payments   repository.PaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how long since the last update before we re-poll
	log        *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.ReconcileUseCase, payments repository.PaymentRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{uc: uc, payments: payments, interval: interval, staleAfter: staleAfter, log: &l}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
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

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.payments.ListStaleNonTerminal(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("listing stale payments failed")
		return
	}
	for _, p := range stale {
		if p.GatewayID == "" {
			// Checkout crashed before the gateway answered; nothing to poll.
			continue
		}
		rec, err := w.uc.Poll(ctx, p.GatewayID)
		if err != nil {
			w.log.Warn().Err(err).Str("payment_id", p.ID).Str("gateway_id", p.GatewayID).Msg("poll failed")
			continue
		}
		if rec.Status != p.Status {
			w.log.Info().
				Str("payment_id", p.ID).
				Str("gateway_id", p.GatewayID).
				Str("from", string(p.Status)).
				Str("to", string(rec.Status)).
				Msg("stale payment reconciled")
		}
	}
}
