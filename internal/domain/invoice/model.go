// Package invoice turns a partner's confirmed, unbilled shipments for a period
// into one invoice and claims them.
package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/id"
)

// StatusConfirmed is the status of every invoice this package creates.
const StatusConfirmed = "confirmed"

// DefaultTaxRate is the consumption tax applied when none is configured.
var DefaultTaxRate = decimal.NewFromFloat(0.10)

// Invoice is a confirmed bill for one partner and period.
type Invoice struct {
	ID          id.ID           `db:"id" json:"id"`
	Number      string          `db:"number" json:"number"`
	PartnerID   id.ID           `db:"partner_id" json:"partnerId"`
	PeriodStart time.Time       `db:"period_start" json:"periodStart"`
	PeriodEnd   time.Time       `db:"period_end" json:"periodEnd"`
	IssueDate   time.Time       `db:"issue_date" json:"issueDate"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxAmount   decimal.Decimal `db:"tax_amount" json:"taxAmount"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Status      string          `db:"status" json:"status"`
	CreatedBy   string          `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`

	Shipments []ShipmentRef `db:"-" json:"shipments,omitempty"`
}

// ShipmentRef is a shipment header as seen from invoicing.
type ShipmentRef struct {
	ID           id.ID           `db:"id" json:"id"`
	Number       string          `db:"number" json:"number"`
	ShipmentDate time.Time       `db:"shipment_date" json:"shipmentDate"`
	TotalAmount  decimal.Decimal `db:"total_amount" json:"totalAmount"`
}

// PartnerSummary is one row of the unbilled summary.
type PartnerSummary struct {
	PartnerID     id.ID           `db:"partner_id" json:"partnerId"`
	PartnerName   string          `db:"partner_name" json:"partnerName"`
	ClosingDate   int             `db:"closing_date" json:"closingDate"`
	ShipmentCount int             `db:"shipment_count" json:"shipmentCount"`
	TotalExclTax  decimal.Decimal `db:"total_excl_tax" json:"totalExclTax"`
}

// ConfirmInput asks for one partner's invoice over [PeriodStart, PeriodEnd].
// TotalExclTax is what the caller saw in the summary; it is compared with the
// recomputed subtotal but never used for the invoice amounts.
type ConfirmInput struct {
	PartnerID    id.ID
	PeriodStart  time.Time
	PeriodEnd    time.Time
	TotalExclTax decimal.Decimal
}

// ConfirmResult is returned by Confirm.
type ConfirmResult struct {
	InvoiceID           id.ID           `json:"invoiceId"`
	Number              string          `json:"number"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	Tax                 decimal.Decimal `json:"tax"`
	Total               decimal.Decimal `json:"total"`
	ClaimedShipments    int             `json:"claimedShipments"`
	CallerTotalMismatch bool            `json:"callerTotalMismatch"`
}

// ListFilter narrows invoice queries.
type ListFilter struct {
	PartnerID *id.ID
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}

// CalculateTax returns the tax and the tax-inclusive total of amount.
// Tax is truncated toward negative infinity to whole currency units.
func CalculateTax(amount, rate decimal.Decimal) (tax, total decimal.Decimal) {
	tax = amount.Mul(rate).Floor()
	return tax, amount.Add(tax)
}
