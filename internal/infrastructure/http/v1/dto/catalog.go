package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/catalogs/partner"
	"ledgerbook/internal/domain/catalogs/price"
	"ledgerbook/internal/domain/catalogs/product"
)

// --- Partners ---

// CreatePartnerRequest is the request body for creating a partner.
// An empty code is filled from the numerator.
type CreatePartnerRequest struct {
	Code        string  `json:"code" binding:"max=50"`
	Name        string  `json:"name" binding:"required,max=200"`
	ClosingDate int     `json:"closingDate" binding:"omitempty,min=1,max=31"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
}

// ToEntity converts DTO to domain entity.
func (r *CreatePartnerRequest) ToEntity() *partner.Partner {
	p := partner.NewPartner(r.Code, r.Name)
	if r.ClosingDate != 0 {
		p.ClosingDate = r.ClosingDate
	}
	p.Email = r.Email
	p.Phone = r.Phone
	p.Address = r.Address
	return p
}

// UpdatePartnerRequest is the request body for updating a partner.
type UpdatePartnerRequest struct {
	Code        string  `json:"code" binding:"required,max=50"`
	Name        string  `json:"name" binding:"required,max=200"`
	ClosingDate int     `json:"closingDate" binding:"required,min=1,max=31"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	Version     int     `json:"version" binding:"required,min=1"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdatePartnerRequest) ApplyTo(p *partner.Partner) {
	p.Code = r.Code
	p.Name = r.Name
	p.ClosingDate = r.ClosingDate
	p.Email = r.Email
	p.Phone = r.Phone
	p.Address = r.Address
	p.Version = r.Version
}

// PartnerResponse is the response body for a partner.
type PartnerResponse struct {
	CatalogResponse
	ClosingDate int     `json:"closingDate"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
}

// FromPartner creates response DTO from domain entity.
func FromPartner(p *partner.Partner) *PartnerResponse {
	return &PartnerResponse{
		CatalogResponse: FromCatalog(p.Catalog),
		ClosingDate:     p.ClosingDate,
		Email:           p.Email,
		Phone:           p.Phone,
		Address:         p.Address,
	}
}

// --- Products ---

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	Code      string  `json:"code" binding:"required,max=50"`
	Name      string  `json:"name" binding:"required,max=200"`
	PartnerID *id.ID  `json:"partnerId"`
	Unit      string  `json:"unit" binding:"max=20"`
	Remarks   *string `json:"remarks"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.Code, r.Name, r.PartnerID)
	if r.Unit != "" {
		p.Unit = r.Unit
	}
	p.Remarks = r.Remarks
	return p
}

// UpdateProductRequest is the request body for updating a product.
type UpdateProductRequest struct {
	Code      string  `json:"code" binding:"required,max=50"`
	Name      string  `json:"name" binding:"required,max=200"`
	PartnerID *id.ID  `json:"partnerId"`
	Unit      string  `json:"unit" binding:"required,max=20"`
	Remarks   *string `json:"remarks"`
	Version   int     `json:"version" binding:"required,min=1"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateProductRequest) ApplyTo(p *product.Product) {
	p.Code = r.Code
	p.Name = r.Name
	p.PartnerID = r.PartnerID
	p.Unit = r.Unit
	p.Remarks = r.Remarks
	p.Version = r.Version
}

// ProductResponse is the response body for a product.
type ProductResponse struct {
	CatalogResponse
	PartnerID *string `json:"partnerId,omitempty"`
	Unit      string  `json:"unit"`
	Remarks   *string `json:"remarks,omitempty"`
}

// FromProduct creates response DTO from domain entity.
func FromProduct(p *product.Product) *ProductResponse {
	resp := &ProductResponse{
		CatalogResponse: FromCatalog(p.Catalog),
		Unit:            p.Unit,
		Remarks:         p.Remarks,
	}
	if p.PartnerID != nil {
		s := p.PartnerID.String()
		resp.PartnerID = &s
	}
	return resp
}

// --- Prices ---

// CreatePriceRequest is the body of POST /catalogs/products/:id/prices.
type CreatePriceRequest struct {
	UnitPrice decimal.Decimal `json:"unitPrice"`
	ValidFrom Date            `json:"validFrom"`
}

// ToEntity converts DTO to domain entity.
func (r *CreatePriceRequest) ToEntity(productID id.ID) *price.Price {
	validFrom := r.ValidFrom.Time
	if validFrom.IsZero() {
		y, m, d := time.Now().UTC().Date()
		validFrom = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return &price.Price{
		ProductID: productID,
		UnitPrice: r.UnitPrice,
		ValidFrom: validFrom,
	}
}
