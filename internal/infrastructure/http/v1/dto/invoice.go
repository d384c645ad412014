package dto

import (
	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/invoice"
)

// UnbilledQuery holds the query parameters of GET /invoices/unbilled.
type UnbilledQuery struct {
	ClosingDate int    `form:"closingDate" binding:"required,min=1,max=31"`
	PeriodStart string `form:"periodStart" binding:"required"`
	PeriodEnd   string `form:"periodEnd" binding:"required"`
}

// ConfirmInvoiceRequest is the body of POST /invoices. TotalExclTax is the
// figure the caller saw in the unbilled summary.
type ConfirmInvoiceRequest struct {
	PartnerID    id.ID           `json:"partnerId" binding:"required"`
	PeriodStart  Date            `json:"periodStart"`
	PeriodEnd    Date            `json:"periodEnd"`
	TotalExclTax decimal.Decimal `json:"totalExclTax"`
}

// ToInput converts the request to an invoice input.
func (r *ConfirmInvoiceRequest) ToInput() invoice.ConfirmInput {
	return invoice.ConfirmInput{
		PartnerID:    r.PartnerID,
		PeriodStart:  r.PeriodStart.Time,
		PeriodEnd:    r.PeriodEnd.Time,
		TotalExclTax: r.TotalExclTax,
	}
}

// InvoiceQuery holds the query parameters of GET /invoices.
type InvoiceQuery struct {
	PageQuery
	PartnerID string `form:"partnerId" binding:"omitempty,uuid"`
	FromDate  string `form:"fromDate"`
	ToDate    string `form:"toDate"`
}
