// Package ledger implements the inventory movement ledger: an append-only log
// of stock events and the three per-product counters derived from it.
package ledger

import (
	"time"

	"ledgerbook/internal/core/id"
)

// Movement is one ledger entry. Entries are never updated, only deleted by
// reversal.
type Movement struct {
	ID             id.ID      `db:"id" json:"id"`
	ProductID      id.ID      `db:"product_id" json:"productId"`
	Kind           Kind       `db:"movement_type" json:"movementType"`
	QuantityChange int64      `db:"quantity_change" json:"quantityChange"`
	Reason         *string    `db:"reason" json:"reason,omitempty"`
	DefectReason   *string    `db:"defect_reason" json:"defectReason,omitempty"`
	DueDate        *time.Time `db:"due_date" json:"dueDate,omitempty"`
	CreatedBy      string     `db:"created_by" json:"createdBy"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

// Counters is the inventory row of one product.
type Counters struct {
	ProductID     id.ID     `db:"product_id" json:"productId"`
	Raw           int64     `db:"raw" json:"raw"`
	Finished      int64     `db:"finished" json:"finished"`
	Defective     int64     `db:"defective" json:"defective"`
	LastUpdatedAt time.Time `db:"last_updated_at" json:"lastUpdatedAt"`
}

// Get returns the value of counter c.
func (c Counters) Get(counter Counter) int64 {
	switch counter {
	case CounterRaw:
		return c.Raw
	case CounterFinished:
		return c.Finished
	case CounterDefective:
		return c.Defective
	}
	return 0
}

// Set assigns counter c.
func (c *Counters) Set(counter Counter, v int64) {
	switch counter {
	case CounterRaw:
		c.Raw = v
	case CounterFinished:
		c.Finished = v
	case CounterDefective:
		c.Defective = v
	}
}

// Add applies deltas in memory.
func (c *Counters) Add(deltas ...Delta) {
	for _, d := range deltas {
		c.Set(d.Counter, c.Get(d.Counter)+d.Amount)
	}
}

// Metadata is the optional descriptive part of an entry.
type Metadata struct {
	Reason       string
	DefectReason string
	DueDate      *time.Time
	// CreatedAt backdates a receiving entry. Ignored as zero value.
	CreatedAt time.Time
}

// ApplyInput is one movement to record.
// Quantity is the signed quantity_change that will be stored.
type ApplyInput struct {
	ProductID id.ID
	Kind      Kind
	Quantity  int64
	Metadata  Metadata
}

// AdjustInput carries the absolute counter values counted at a stocktake.
// Nil fields are left untouched.
type AdjustInput struct {
	ProductID id.ID
	Raw       *int64
	Finished  *int64
	Defective *int64
	Reason    string
}

func (in AdjustInput) target(c Counter) *int64 {
	switch c {
	case CounterRaw:
		return in.Raw
	case CounterFinished:
		return in.Finished
	default:
		return in.Defective
	}
}

// AdjustResult reports the counters around an adjustment and the entries it
// wrote (one per changed counter).
type AdjustResult struct {
	Before    Counters   `json:"before"`
	After     Counters   `json:"after"`
	Movements []Movement `json:"movements"`
}

// ItemError describes one failed item of a bulk operation.
type ItemError struct {
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BulkResult is the outcome of a best-effort batch.
type BulkResult struct {
	SuccessCount int         `json:"successCount"`
	ErrorCount   int         `json:"errorCount"`
	Errors       []ItemError `json:"errors,omitempty"`
}

// MovementFilter narrows movement history queries.
type MovementFilter struct {
	ProductID *id.ID
	Kinds     []Kind
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}
