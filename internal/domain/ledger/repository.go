package ledger

import (
	"context"

	"ledgerbook/internal/core/id"
)

// Repository is the persistence contract of the ledger.
//
// Implementations must join the transaction carried by ctx.
type Repository interface {
	// ApplyDeltas atomically adds the deltas to the product's counters
	// (field = field + delta). Returns NotFound when the product has no
	// inventory row.
	ApplyDeltas(ctx context.Context, productID id.ID, deltas []Delta) error

	// GetCounters reads the inventory row.
	GetCounters(ctx context.Context, productID id.ID) (Counters, error)

	// GetCountersForUpdate reads the inventory row and locks it until the
	// transaction ends.
	GetCountersForUpdate(ctx context.Context, productID id.ID) (Counters, error)

	// SetCounters writes absolute counter values.
	SetCounters(ctx context.Context, c Counters) error

	// InsertMovement appends an entry.
	InsertMovement(ctx context.Context, m *Movement) error

	// GetMovementForUpdate reads and locks an entry.
	GetMovementForUpdate(ctx context.Context, movementID id.ID) (Movement, error)

	// DeleteMovement hard-deletes an entry.
	DeleteMovement(ctx context.Context, movementID id.ID) error

	// ListMovements returns entries newest first.
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}
