package entity

import (
	"context"
	"strings"

	"ledgerbook/internal/core/apperror"
)

// Catalog is the base type for reference data: partners and products.
type Catalog struct {
	BaseEntity

	// Code is a human-readable identifier, unique per table
	Code string `db:"code" json:"code"`

	Name string `db:"name" json:"name"`
}

// NewCatalog creates a new Catalog with generated ID.
func NewCatalog(code, name string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(),
		Code:       strings.TrimSpace(code),
		Name:       strings.TrimSpace(name),
	}
}

// Validate implements Validatable.
func (c *Catalog) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if strings.TrimSpace(c.Code) == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	return nil
}
