package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"content-subscription-platform/internal/domain"
	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/domain/ports/adapter"
	"content-subscription-platform/internal/domain/ports/repository"
	"content-subscription-platform/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// Observation is a status report about a payment, from either a push callback
// or a pull poll. Both funnel through the same transition rule.
type Observation struct {
	GatewayID    string
	Status       model.PaymentStatus
	ActuallyPaid float64
}

// ReconcileUseCase is the state machine that turns gateway status observations
// into authoritative payment and subscription state.
type ReconcileUseCase interface {
	// Apply runs the transition rule for one observation.
	Apply(ctx context.Context, obs Observation) (*model.PaymentRecord, error)
	// ApplyWebhook authenticates and decodes a raw IPN callback, then applies it.
	ApplyWebhook(ctx context.Context, signature string, rawBody []byte) (*model.PaymentRecord, error)
	// Poll pulls fresh status from the gateway and applies it, degrading to the
	// last persisted record when the gateway is unreachable.
	Poll(ctx context.Context, gatewayID string) (*model.PaymentRecord, error)
}

type reconcileUC struct {
	payments repository.PaymentRepository
	users    repository.UserRepository
	gateway  adapter.PaymentGateway
	tm       repository.TransactionManager
	plans    model.PlanCatalog
	cache    SubscriptionCache
	log      *zerolog.Logger
}

func NewReconcileUseCase(
	payments repository.PaymentRepository,
	users repository.UserRepository,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	plans model.PlanCatalog,
	cache SubscriptionCache,
	logger *zerolog.Logger,
) *reconcileUC {
	l := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{
		payments: payments,
		users:    users,
		gateway:  gateway,
		tm:       tm,
		plans:    plans,
		cache:    cache,
		log:      &l,
	}
}

// Apply runs steps of the transition rule inside a single transaction. The
// payment row is read FOR UPDATE, so two concurrent observations for the same
// gateway id serialize and only one can pass the "ConfirmedAt absent" guard.
// Observations for different gateway ids never contend.
func (u *reconcileUC) Apply(ctx context.Context, obs Observation) (*model.PaymentRecord, error) {
	if obs.GatewayID == "" {
		return nil, fmt.Errorf("%w: empty gateway id", domain.ErrInvalidArgument)
	}

	var out *model.PaymentRecord
	var grantedUser string
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByGatewayID(ctx, tx, obs.GatewayID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrUnknownPayment, obs.GatewayID)
			}
			return err
		}

		// Once terminal, status is frozen even if a stale callback disagrees.
		if p.Status.IsTerminal() {
			return fmt.Errorf("%w: payment %s already %s", domain.ErrInvalidTransition, p.GatewayID, p.Status)
		}

		now := time.Now()
		if obs.ActuallyPaid > p.ActuallyPaid {
			p.ActuallyPaid = obs.ActuallyPaid
		}
		p.Status = obs.Status
		p.UpdatedAt = now

		// First-confirmation-only guard: this check-and-set is what makes the
		// engine idempotent against duplicate deliveries and polling races.
		grant := obs.Status.IsQualifying() && p.ConfirmedAt == nil
		if grant {
			confirmed := now
			p.ConfirmedAt = &confirmed
		}

		// Payment first, then user: a crash between the two leaves the guard
		// set, so the next poll skips the grant instead of doubling it.
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		if grant {
			if err := u.extendSubscription(ctx, tx, p, now); err != nil {
				return err
			}
			grantedUser = p.UserID
			metrics.IncSubscriptionGranted(string(p.Plan))
			metrics.AddPaymentRevenue(p.Currency, p.Amount)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if grantedUser != "" {
		// Cache eviction is outside the transaction; a failure only delays
		// visibility by one TTL.
		if err := u.cache.Invalidate(ctx, grantedUser); err != nil {
			u.log.Warn().Err(err).Str("user_id", grantedUser).Msg("subscription cache invalidation failed")
		}
		u.log.Info().
			Str("payment_id", out.GatewayID).
			Str("user_id", grantedUser).
			Str("plan", string(out.Plan)).
			Msg("subscription granted")
	}
	return out, nil
}

func (u *reconcileUC) extendSubscription(ctx context.Context, tx repository.Tx, p *model.PaymentRecord, now time.Time) error {
	plan, err := u.plans.Find(p.Plan)
	if err != nil {
		return err
	}
	user, err := u.users.FindByID(ctx, tx, p.UserID)
	if err != nil {
		return err
	}
	user.Subscription.Extend(plan.Tier, now, plan.Duration)
	return u.users.Save(ctx, tx, user)
}

// webhookPayload mirrors the gateway IPN body. payment_id arrives as a number
// from some gateway versions and a string from others.
type webhookPayload struct {
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
	ActuallyPaid  float64     `json:"actually_paid"`
	OrderID       string      `json:"order_id"`
}

func (u *reconcileUC) ApplyWebhook(ctx context.Context, signature string, rawBody []byte) (*model.PaymentRecord, error) {
	if !u.gateway.VerifyCallback(signature, rawBody) {
		metrics.IncObservation("webhook", metrics.OutcomeUnauthorized)
		u.log.Warn().Msg("webhook rejected: bad signature")
		return nil, domain.ErrUnauthorized
	}

	var in webhookPayload
	if err := json.Unmarshal(rawBody, &in); err != nil {
		metrics.IncObservation("webhook", metrics.OutcomeMalformed)
		return nil, fmt.Errorf("%w: malformed webhook body: %v", domain.ErrInvalidArgument, err)
	}
	if in.PaymentID.String() == "" {
		metrics.IncObservation("webhook", metrics.OutcomeMalformed)
		return nil, fmt.Errorf("%w: webhook body missing payment_id", domain.ErrInvalidArgument)
	}
	status, err := model.ParsePaymentStatus(in.PaymentStatus)
	if err != nil {
		metrics.IncObservation("webhook", metrics.OutcomeMalformed)
		u.log.Warn().Str("payment_id", in.PaymentID.String()).Str("status", in.PaymentStatus).Msg("webhook carried unrecognized status")
		return nil, err
	}

	rec, err := u.Apply(ctx, Observation{
		GatewayID:    in.PaymentID.String(),
		Status:       status,
		ActuallyPaid: in.ActuallyPaid,
	})
	metrics.IncObservation("webhook", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (u *reconcileUC) Poll(ctx context.Context, gatewayID string) (*model.PaymentRecord, error) {
	report, err := u.gateway.FetchStatus(ctx, gatewayID)
	if err != nil {
		// Gateway I/O failures during a poll are non-fatal: fall back to the
		// last persisted status.
		u.log.Warn().Err(err).Str("payment_id", gatewayID).Msg("status fetch failed; using last persisted state")
		metrics.IncObservation("poll", metrics.OutcomeError)
		return u.lastPersisted(ctx, gatewayID)
	}

	status, err := model.ParsePaymentStatus(report.Status)
	if err != nil {
		u.log.Warn().Str("payment_id", gatewayID).Str("status", report.Status).Msg("poll returned unrecognized status")
		metrics.IncObservation("poll", metrics.OutcomeMalformed)
		return u.lastPersisted(ctx, gatewayID)
	}

	rec, err := u.Apply(ctx, Observation{
		GatewayID:    gatewayID,
		Status:       status,
		ActuallyPaid: report.ActuallyPaid,
	})
	if errors.Is(err, domain.ErrInvalidTransition) {
		// Stale observation against a frozen record; the persisted state wins.
		metrics.IncObservation("poll", metrics.OutcomeTerminal)
		return u.lastPersisted(ctx, gatewayID)
	}
	metrics.IncObservation("poll", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (u *reconcileUC) lastPersisted(ctx context.Context, gatewayID string) (*model.PaymentRecord, error) {
	p, err := u.payments.FindByGatewayID(ctx, repository.NoTX, gatewayID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPayment, gatewayID)
		}
		return nil, err
	}
	return p, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeApplied
	case errors.Is(err, domain.ErrUnknownPayment):
		return metrics.OutcomeUnknown
	case errors.Is(err, domain.ErrInvalidTransition):
		return metrics.OutcomeTerminal
	default:
		return metrics.OutcomeError
	}
}
