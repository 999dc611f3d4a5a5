package domain

import "context"

// TransactionManager runs a function inside one database transaction.
// Implementations propagate the transaction through the context.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noopTransactionManager struct{}

// NewNoopTransactionManager returns a TransactionManager for backends
// without transactions, such as the in-memory index.
func NewNoopTransactionManager() TransactionManager {
	return noopTransactionManager{}
}

func (noopTransactionManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
