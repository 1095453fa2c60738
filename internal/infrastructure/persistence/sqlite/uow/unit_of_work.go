package uow

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"cultura/internal/errs"
	"cultura/internal/ports"
)

// UnitOfWork implements ports.UnitOfWork with gorm.
type UnitOfWork struct {
	db *gorm.DB
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ports.WithTxContext(ctx, tx))
	})
}

func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, ports.TxControl, error) {
	if ctx == nil {
		return nil, nil, errors.New("context is required")
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, nil, errs.Wrap(tx.Error, "begin transaction")
	}
	return ports.WithTxContext(ctx, tx), &txControl{tx: tx}, nil
}

type txControl struct {
	tx *gorm.DB
}

func (c *txControl) Savepoint(name string) error {
	return errs.Wrapf(c.tx.SavePoint(name).Error, "savepoint %s", name)
}

func (c *txControl) RollbackTo(name string) error {
	return errs.Wrapf(c.tx.RollbackTo(name).Error, "rollback to savepoint %s", name)
}

func (c *txControl) Release(name string) error {
	return errs.Wrapf(c.tx.Exec("RELEASE SAVEPOINT "+name).Error, "release savepoint %s", name)
}

func (c *txControl) Commit() error {
	return errs.Wrap(c.tx.Commit().Error, "commit transaction")
}

func (c *txControl) Rollback() error {
	return errs.Wrap(c.tx.Rollback().Error, "rollback transaction")
}
