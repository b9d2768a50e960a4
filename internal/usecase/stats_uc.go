package usecase

import (
	"context"
	"time"

	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/domain/ports/repository"
)

var _ StatsUseCase = (*statsUC)(nil)

// Totals are the platform counters served on the admin API.
type Totals struct {
	TotalUsers          int `json:"total_users"`
	ActiveSubscriptions int `json:"active_subscriptions"`
	TotalPayments       int `json:"total_payments"`
	SuccessfulPayments  int `json:"successful_payments"`
}

type StatsUseCase interface {
	Totals(ctx context.Context) (Totals, error)
}

type statsUC struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
}

func NewStatsUseCase(users repository.UserRepository, payments repository.PaymentRepository) *statsUC {
	return &statsUC{users: users, payments: payments}
}

func (u *statsUC) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	var err error

	if t.TotalUsers, err = u.users.Count(ctx, repository.NoTX); err != nil {
		return Totals{}, err
	}
	if t.ActiveSubscriptions, err = u.users.CountActiveSubscriptions(ctx, repository.NoTX, time.Now()); err != nil {
		return Totals{}, err
	}
	if t.TotalPayments, err = u.payments.Count(ctx, repository.NoTX); err != nil {
		return Totals{}, err
	}
	byStatus, err := u.payments.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return Totals{}, err
	}
	t.SuccessfulPayments = byStatus[model.PaymentStatusFinished] + byStatus[model.PaymentStatusConfirmed]
	return t, nil
}
