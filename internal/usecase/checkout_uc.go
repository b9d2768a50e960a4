package usecase

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/domain/ports/adapter"
	"content-subscription-platform/internal/domain/ports/repository"
	"content-subscription-platform/internal/infra/metrics"
)

var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutUseCase opens a payment with the gateway for a chosen plan and
// persists the pending record. One record per attempt; retries create a new one.
type CheckoutUseCase interface {
	Initiate(ctx context.Context, userID string, plan model.Tier) (*model.PaymentRecord, error)
}

type checkoutUC struct {
	payments    repository.PaymentRepository
	users       repository.UserRepository
	gateway     adapter.PaymentGateway
	plans       model.PlanCatalog
	callbackURL string
	log         *zerolog.Logger
}

func NewCheckoutUseCase(
	payments repository.PaymentRepository,
	users repository.UserRepository,
	gateway adapter.PaymentGateway,
	plans model.PlanCatalog,
	callbackURL string,
	logger *zerolog.Logger,
) *checkoutUC {
	l := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{
		payments:    payments,
		users:       users,
		gateway:     gateway,
		plans:       plans,
		callbackURL: callbackURL,
		log:         &l,
	}
}

func (u *checkoutUC) Initiate(ctx context.Context, userID string, tier model.Tier) (*model.PaymentRecord, error) {
	plan, err := u.plans.Find(tier)
	if err != nil {
		return nil, err
	}
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}

	p, err := model.NewPaymentRecord(user.ID, plan.Tier, plan.PriceUSD, "usd")
	if err != nil {
		return nil, err
	}
	// ULID keeps order ids unique and sortable by creation time.
	p.OrderID = fmt.Sprintf("sub_%s_%s_%s", user.ID, plan.Tier, ulid.Make().String())

	created, err := u.gateway.CreatePayment(ctx, p.OrderID, plan.Name+" subscription", plan.PriceUSD, "usd", u.callbackURL)
	if err != nil {
		return nil, err
	}

	p.GatewayID = created.PaymentID
	p.PayAddress = created.PayAddress
	p.PaymentURL = created.PaymentURL
	if st, err := model.ParsePaymentStatus(created.Status); err == nil {
		p.Status = st
	}

	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	metrics.IncPaymentInitiated(string(plan.Tier))
	u.log.Info().
		Str("payment_id", p.GatewayID).
		Str("user_id", user.ID).
		Str("plan", string(plan.Tier)).
		Float64("amount", plan.PriceUSD).
		Msg("checkout initiated")
	return p, nil
}
