package repository

import (
	"context"
	"time"

	"content-subscription-platform/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PaymentRecord) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentRecord, error)
	// FindByGatewayID locks the row (FOR UPDATE) when called inside a transaction.
	FindByGatewayID(ctx context.Context, tx Tx, gatewayID string) (*model.PaymentRecord, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.PaymentRecord, error)
	// ListStaleNonTerminal returns non-terminal records not updated since the
	// cutoff, oldest first. Used by the reconciler sweep.
	ListStaleNonTerminal(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PaymentRecord, error)
	Count(ctx context.Context, tx Tx) (int, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.PaymentStatus]int, error)
}
