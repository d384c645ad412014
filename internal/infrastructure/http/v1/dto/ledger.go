package dto

import (
	"time"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/ledger"
)

// ApplyMovementRequest is the body of POST /ledger/movements.
// QuantityChange is signed: shipping -5, receiving +20, repair +3 (finished gain).
type ApplyMovementRequest struct {
	ProductID      id.ID      `json:"productId" binding:"required"`
	MovementType   string     `json:"movementType" binding:"required,movement_kind"`
	QuantityChange int64      `json:"quantityChange" binding:"required"`
	Reason         string     `json:"reason" binding:"max=500"`
	DefectReason   string     `json:"defectReason" binding:"max=500"`
	DueDate        *Date      `json:"dueDate"`
	CreatedAt      *time.Time `json:"createdAt"`
}

// ToInput converts the request to a ledger input.
func (r *ApplyMovementRequest) ToInput() ledger.ApplyInput {
	in := ledger.ApplyInput{
		ProductID: r.ProductID,
		Kind:      ledger.Kind(r.MovementType),
		Quantity:  r.QuantityChange,
		Metadata: ledger.Metadata{
			Reason:       r.Reason,
			DefectReason: r.DefectReason,
		},
	}
	if r.DueDate != nil && !r.DueDate.IsZero() {
		due := r.DueDate.Time
		in.Metadata.DueDate = &due
	}
	if r.CreatedAt != nil {
		in.Metadata.CreatedAt = *r.CreatedAt
	}
	return in
}

// BulkApplyRequest is the body of POST /ledger/movements/bulk.
type BulkApplyRequest struct {
	Items []ApplyMovementRequest `json:"items" binding:"required,min=1,max=500"`
}

// ToInputs converts every item. Items are not validated by binding so one bad
// row is reported per index instead of failing the whole batch.
func (r *BulkApplyRequest) ToInputs() []ledger.ApplyInput {
	out := make([]ledger.ApplyInput, len(r.Items))
	for i := range r.Items {
		out[i] = r.Items[i].ToInput()
	}
	return out
}

// BulkReverseRequest is the body of POST /ledger/movements/bulk-reverse.
type BulkReverseRequest struct {
	MovementIDs []id.ID `json:"movementIds" binding:"required,min=1,max=500"`
}

// AdjustRequest is the body of POST /ledger/adjustments: absolute counter
// values from a stocktake. Omitted counters are left alone.
type AdjustRequest struct {
	ProductID id.ID  `json:"productId" binding:"required"`
	Raw       *int64 `json:"raw" binding:"omitempty,min=0"`
	Finished  *int64 `json:"finished" binding:"omitempty,min=0"`
	Defective *int64 `json:"defective" binding:"omitempty,min=0"`
	Reason    string `json:"reason" binding:"max=500"`
}

// ToInput converts the request to a ledger input.
func (r *AdjustRequest) ToInput() ledger.AdjustInput {
	return ledger.AdjustInput{
		ProductID: r.ProductID,
		Raw:       r.Raw,
		Finished:  r.Finished,
		Defective: r.Defective,
		Reason:    r.Reason,
	}
}

// MovementQuery holds the query parameters of GET /ledger/movements.
type MovementQuery struct {
	PageQuery
	ProductID string   `form:"productId" binding:"omitempty,uuid"`
	Types     []string `form:"type" binding:"omitempty,dive,movement_kind"`
	FromDate  string   `form:"fromDate"`
	ToDate    string   `form:"toDate"`
}
