// Package ledgertest provides an in-memory ledger repository for tests of
// packages that build on the ledger engine.
package ledgertest

import (
	"context"
	"sort"
	"sync"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/ledger"
)

// MemoryRepository implements ledger.Repository on maps.
type MemoryRepository struct {
	mu        sync.Mutex
	counters  map[id.ID]ledger.Counters
	movements map[id.ID]ledger.Movement
	order     []id.ID

	// FailInsert makes InsertMovement fail with this error when set.
	FailInsert error
}

var _ ledger.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		counters:  make(map[id.ID]ledger.Counters),
		movements: make(map[id.ID]ledger.Movement),
	}
}

// AddProduct creates a zero inventory row.
func (r *MemoryRepository) AddProduct(productID id.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[productID] = ledger.Counters{ProductID: productID}
}

// PutMovement stores an entry without touching counters.
func (r *MemoryRepository) PutMovement(m ledger.Movement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements[m.ID] = m
	r.order = append(r.order, m.ID)
}

// Movements returns live entries in insertion order.
func (r *MemoryRepository) Movements() []ledger.Movement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Movement, 0, len(r.movements))
	for _, mid := range r.order {
		if m, ok := r.movements[mid]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *MemoryRepository) ApplyDeltas(_ context.Context, productID id.ID, deltas []ledger.Delta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[productID]
	if !ok {
		return apperror.NewNotFound("inventory", productID)
	}
	c.Add(deltas...)
	r.counters[productID] = c
	return nil
}

func (r *MemoryRepository) GetCounters(_ context.Context, productID id.ID) (ledger.Counters, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[productID]
	if !ok {
		return ledger.Counters{}, apperror.NewNotFound("inventory", productID)
	}
	return c, nil
}

func (r *MemoryRepository) GetCountersForUpdate(ctx context.Context, productID id.ID) (ledger.Counters, error) {
	return r.GetCounters(ctx, productID)
}

func (r *MemoryRepository) SetCounters(_ context.Context, c ledger.Counters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.counters[c.ProductID]; !ok {
		return apperror.NewNotFound("inventory", c.ProductID)
	}
	r.counters[c.ProductID] = c
	return nil
}

func (r *MemoryRepository) InsertMovement(_ context.Context, m *ledger.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailInsert != nil {
		return r.FailInsert
	}
	r.movements[m.ID] = *m
	r.order = append(r.order, m.ID)
	return nil
}

func (r *MemoryRepository) GetMovementForUpdate(_ context.Context, movementID id.ID) (ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.movements[movementID]
	if !ok {
		return ledger.Movement{}, apperror.NewNotFound("movement", movementID)
	}
	return m, nil
}

func (r *MemoryRepository) DeleteMovement(_ context.Context, movementID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.movements[movementID]; !ok {
		return apperror.NewNotFound("movement", movementID)
	}
	delete(r.movements, movementID)
	return nil
}

func (r *MemoryRepository) ListMovements(_ context.Context, f ledger.MovementFilter) ([]ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make(map[ledger.Kind]bool, len(f.Kinds))
	for _, k := range f.Kinds {
		kinds[k] = true
	}

	var out []ledger.Movement
	for _, m := range r.movements {
		if f.ProductID != nil && m.ProductID != *f.ProductID {
			continue
		}
		if len(kinds) > 0 && !kinds[m.Kind] {
			continue
		}
		if f.FromDate != nil && m.CreatedAt.Before(*f.FromDate) {
			continue
		}
		if f.ToDate != nil && m.CreatedAt.After(*f.ToDate) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() > out[j].ID.String() })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// LiveSum returns the sum of contributions of live entries to counter c for
// a product.
func (r *MemoryRepository) LiveSum(productID id.ID, c ledger.Counter) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, m := range r.movements {
		if m.ProductID != productID {
			continue
		}
		rule, ok := ledger.RuleFor(m.Kind)
		if !ok {
			continue
		}
		sum += rule.Contribution(c) * m.QuantityChange
	}
	return sum
}
