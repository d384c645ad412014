// Package product provides the product catalog. Every product owns exactly
// one inventory counters row, created together with the product.
package product

import (
	"context"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/entity"
	"ledgerbook/internal/core/id"
)

// Product is a stock item. PartnerID is the customer the product is made
// for; shipments are grouped by it.
type Product struct {
	entity.Catalog

	PartnerID *id.ID  `db:"partner_id" json:"partnerId,omitempty"`
	Unit      string  `db:"unit" json:"unit"`
	Remarks   *string `db:"remarks" json:"remarks,omitempty"`
}

// NewProduct creates a product counted in pieces.
func NewProduct(code, name string, partnerID *id.ID) *Product {
	return &Product{
		Catalog:   entity.NewCatalog(code, name),
		PartnerID: partnerID,
		Unit:      "pcs",
	}
}

// Validate implements domain.Entity.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}
	if p.PartnerID != nil && id.IsNil(*p.PartnerID) {
		return apperror.NewValidation("partner id must not be nil uuid").
			WithDetail("field", "partnerId")
	}
	return nil
}
