package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions
type TransactionManager interface {
	// ExecTx executes fn within a transaction. A transaction already present in
	// ctx is reused so nested calls join the outer commit.
	ExecTx(ctx context.Context, fn TxFn) error
}

// LeaderLock is a cluster-wide, session-scoped lock used to elect a single
// leader for background jobs.
type LeaderLock interface {
	// TryAcquire attempts the lock without blocking.
	TryAcquire(ctx context.Context) (bool, error)

	// Release drops the lock and returns its connection to the pool.
	Release(ctx context.Context) error
}
