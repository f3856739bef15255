package uow

import (
	"context"

	"gorm.io/gorm"

	"adtraffic/internal/ports"
)

// UnitOfWork runs one ticket's write-back in a single sqlite transaction.
type UnitOfWork struct {
	db *gorm.DB
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithTx commits when fn returns nil and rolls back otherwise. Repositories
// pick the transaction up from the context passed to fn.
func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ports.TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ports.WithTxContext(ctx, tx))
	})
}
