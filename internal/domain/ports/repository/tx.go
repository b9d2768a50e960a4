package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via `tx`.
//
// Repositories accept `tx Tx` and detect a live transaction on the
// implementation side (e.g. to add SELECT ... FOR UPDATE and bind Exec/Query
// to the transaction). They MUST gracefully accept NoTX for the
// non-transactional path.
//
// The reconciliation engine relies on this: reading a payment row FOR UPDATE
// inside WithTx is the per-record critical section that serializes concurrent
// observations for the same gateway id.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
