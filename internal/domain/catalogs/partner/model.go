// Package partner provides the partner catalog: customers that receive
// shipments and invoices.
package partner

import (
	"context"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/entity"
)

// EndOfMonth is the closing_date value for partners billed on the last day
// of the month.
const EndOfMonth = 31

// Partner is a customer. ClosingDate is the day of month its billing period
// closes on; partners sharing it form one invoicing cohort.
type Partner struct {
	entity.Catalog

	ClosingDate int     `db:"closing_date" json:"closingDate"`
	Email       *string `db:"email" json:"email,omitempty"`
	Phone       *string `db:"phone" json:"phone,omitempty"`
	Address     *string `db:"address" json:"address,omitempty"`
}

// NewPartner creates a partner billed at month end.
func NewPartner(code, name string) *Partner {
	return &Partner{
		Catalog:     entity.NewCatalog(code, name),
		ClosingDate: EndOfMonth,
	}
}

// Validate implements domain.Entity.
func (p *Partner) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}
	if p.ClosingDate < 1 || p.ClosingDate > EndOfMonth {
		return apperror.NewValidation("closing date must be between 1 and 31").
			WithDetail("field", "closingDate").
			WithDetail("value", p.ClosingDate)
	}
	return nil
}
