package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-subscription-platform/internal/domain"
	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, gateway_id, user_id, plan, amount, currency, order_id, pay_address, payment_url, status, actually_paid, created_at, updated_at, confirmed_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
	const q = `
INSERT INTO payments (
  id, gateway_id, user_id, plan, amount, currency, order_id, pay_address, payment_url, status, actually_paid, created_at, updated_at, confirmed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
) ON CONFLICT (id) DO UPDATE SET
  gateway_id=$2, status=$10, actually_paid=$11, updated_at=$13, confirmed_at=$14, pay_address=$8, payment_url=$9;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.GatewayID, p.UserID, p.Plan, p.Amount, p.Currency, p.OrderID, p.PayAddress, p.PaymentURL, p.Status, p.ActuallyPaid, p.CreatedAt, p.UpdatedAt, p.ConfirmedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentRecord, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByGatewayID(ctx context.Context, tx repository.Tx, gatewayID string) (*model.PaymentRecord, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_id=$1 LIMIT 1`
	// The reconciler serializes concurrent observations on the row lock.
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, gatewayID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PaymentRecord, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (r *paymentRepo) ListStaleNonTerminal(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments
WHERE status NOT IN ('finished','refunded','expired') AND updated_at < $1
ORDER BY updated_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (r *paymentRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM payments;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *paymentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM payments GROUP BY status;`)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()

	out := make(map[model.PaymentStatus]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.PaymentStatus(st)] = n
	}
	return out, nil
}

func scanPayment(row pgx.Row) (*model.PaymentRecord, error) {
	p := &model.PaymentRecord{}
	if err := row.Scan(&p.ID, &p.GatewayID, &p.UserID, &p.Plan, &p.Amount, &p.Currency, &p.OrderID, &p.PayAddress, &p.PaymentURL, &p.Status, &p.ActuallyPaid, &p.CreatedAt, &p.UpdatedAt, &p.ConfirmedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func scanPayments(rows pgx.Rows) ([]*model.PaymentRecord, error) {
	var out []*model.PaymentRecord
	for rows.Next() {
		p := new(model.PaymentRecord)
		if err := rows.Scan(&p.ID, &p.GatewayID, &p.UserID, &p.Plan, &p.Amount, &p.Currency, &p.OrderID, &p.PayAddress, &p.PaymentURL, &p.Status, &p.ActuallyPaid, &p.CreatedAt, &p.UpdatedAt, &p.ConfirmedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, nil
}

func wrapQueryErr(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrNotFound
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
		return err
	default:
		return domain.ErrOperationFailed
	}
}
