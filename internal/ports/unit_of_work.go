package ports

import "context"

// Tx is an opaque transaction handle carried in context. The record store
// adapter decides the concrete type (*gorm.DB for sqlite).
type Tx any

// UnitOfWork groups one ticket's write-back (QA records plus stage update).
// Returning an error from fn rolls back, nil commits.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Sequential is the UnitOfWork for stores without transactions: fn runs once,
// in order, and the caller is responsible for making the writes idempotent.
type Sequential struct{}

func (Sequential) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type txKey struct{}

// WithTxContext stores a transaction handle in context.
func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext reads a transaction handle from context.
func TxFromContext(ctx context.Context) Tx {
	return ctx.Value(txKey{})
}
