// Package shipment consolidates shipment requests into one delivery note per
// partner and day, and depletes stock through the ledger.
package shipment

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/ledger"
)

// Type selects which stock a shipment depletes.
type Type string

const (
	TypeStandard       Type = "standard"
	TypeReturnBillable Type = "return_billable"
	TypeReturnFree     Type = "return_free"
)

// IsValid reports whether t is a known shipment type.
func (t Type) IsValid() bool {
	switch t {
	case TypeStandard, TypeReturnBillable, TypeReturnFree:
		return true
	}
	return false
}

// MovementKind is the ledger kind emitted for each line of this type.
func (t Type) MovementKind() ledger.Kind {
	switch t {
	case TypeReturnBillable:
		return ledger.KindReturnBillable
	case TypeReturnFree:
		return ledger.KindReturnFree
	default:
		return ledger.KindShipping
	}
}

// CancelKind returns the marker kind written when a line that depleted stock
// with kind is cancelled.
func CancelKind(kind ledger.Kind) ledger.Kind {
	switch kind {
	case ledger.KindReturnBillable, ledger.KindReturnFree:
		return ledger.KindReturnCancel
	default:
		return ledger.KindShippingCancel
	}
}

// StatusConfirmed is the only status a shipment header takes.
const StatusConfirmed = "confirmed"

// Shipment is a delivery note header. TotalAmount is the sum of its item
// line totals.
type Shipment struct {
	ID           id.ID           `db:"id" json:"id"`
	Number       string          `db:"number" json:"number"`
	PartnerID    id.ID           `db:"partner_id" json:"partnerId"`
	ShipmentDate time.Time       `db:"shipment_date" json:"shipmentDate"`
	Status       string          `db:"status" json:"status"`
	TotalAmount  decimal.Decimal `db:"total_amount" json:"totalAmount"`
	InvoiceID    *id.ID          `db:"invoice_id" json:"invoiceId,omitempty"`
	Remarks      *string         `db:"remarks" json:"remarks,omitempty"`
	CreatedBy    string          `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`

	Items []Item `db:"-" json:"items,omitempty"`
}

// Item is one shipment line. MovementType records which ledger kind the line
// emitted, so cancellation knows which counter to credit.
type Item struct {
	ID           id.ID           `db:"id" json:"id"`
	ShipmentID   id.ID           `db:"shipment_id" json:"shipmentId"`
	ProductID    id.ID           `db:"product_id" json:"productId"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unitPrice"`
	LineTotal    decimal.Decimal `db:"line_total" json:"lineTotal"`
	MovementType ledger.Kind     `db:"movement_type" json:"movementType"`
}

// ProductOwner is the product master row joined with its partner.
type ProductOwner struct {
	ProductID   id.ID   `db:"product_id"`
	ProductName string  `db:"product_name"`
	PartnerID   *id.ID  `db:"partner_id"`
	PartnerName *string `db:"partner_name"`
}

// RequestItem is one requested line. A nil or zero UnitPrice means "look it
// up in the price history".
type RequestItem struct {
	ProductID id.ID
	Quantity  int64
	UnitPrice *decimal.Decimal
}

// RegisterInput is a shipment registration request. PartnerHint is what the
// caller believes the partner is; grouping never uses it.
type RegisterInput struct {
	PartnerHint *id.ID
	Items       []RequestItem
	Date        time.Time
	Type        Type
	Reason      string
	Remarks     string
}

// GroupResult describes what happened to one partner's delivery note.
type GroupResult struct {
	ShipmentID  id.ID           `json:"shipmentId"`
	Number      string          `json:"number"`
	PartnerID   id.ID           `json:"partnerId"`
	Created     bool            `json:"created"`
	ItemCount   int             `json:"itemCount"`
	AddedAmount decimal.Decimal `json:"addedAmount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// RegisterResult is returned by Register.
type RegisterResult struct {
	ShipmentIDs []id.ID       `json:"shipmentIds"`
	Groups      []GroupResult `json:"groups"`
	Message     string        `json:"message"`
}

// ListFilter narrows shipment queries.
type ListFilter struct {
	PartnerID *id.ID
	FromDate  *time.Time
	ToDate    *time.Time
	Unbilled  bool
	Limit     int
	Offset    int
}
