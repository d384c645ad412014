// Package tx defines the transaction boundary used by domain services.
// Implementations live in infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs a unit of work atomically.
//
// Nested calls reuse the transaction already carried by ctx, so a ledger Apply
// invoked from inside a shipment registration joins the outer transaction.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Passthrough runs fn directly without a transaction. It is meant for tests and
// for in-memory repositories that are atomic on their own.
type Passthrough struct{}

// RunInTransaction implements Manager. Commit hooks fire when the outermost
// call returns nil, as they would with a real transaction.
func (Passthrough) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if HasCommitHooks(ctx) {
		return fn(ctx)
	}
	ctx, hooks := WithCommitHooks(ctx)
	if err := fn(ctx); err != nil {
		return err
	}
	hooks.Run()
	return nil
}

// ReadOnly implements ReadOnlyManager.
func (p Passthrough) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return p.RunInTransaction(ctx, fn)
}
