package ports

import "context"

// Tx is an opaque transaction handle for repositories/adapters.
// Infrastructure controls the concrete type (for example, *gorm.DB).
type Tx interface{}

// UnitOfWork defines a transaction boundary.
//
// WithTx is callback-style: returning an error causes rollback, returning nil commits.
// Begin hands out a long-lived transaction for batch drivers that commit periodically
// and isolate single records with savepoints.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Begin(ctx context.Context) (context.Context, TxControl, error)
}

// TxControl steers a transaction opened with Begin. The context returned by Begin
// carries the transaction for repositories.
type TxControl interface {
	Savepoint(name string) error
	RollbackTo(name string) error
	// Release drops a savepoint and keeps its changes in the transaction.
	Release(name string) error
	Commit() error
	Rollback() error
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
