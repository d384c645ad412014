// Package price keeps the unit price history of products.
package price

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
)

// Status of a price row.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Price is one row of a product's price history. The price in effect on a
// date is the active row with the latest ValidFrom not after that date.
type Price struct {
	ID        id.ID           `db:"id" json:"id"`
	ProductID id.ID           `db:"product_id" json:"productId"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unitPrice"`
	ValidFrom time.Time       `db:"valid_from" json:"validFrom"`
	Status    Status          `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// Validate checks the row before insert.
func (p *Price) Validate() error {
	if id.IsNil(p.ProductID) {
		return apperror.NewValidation("product id is required").WithDetail("field", "productId")
	}
	if p.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price must not be negative").WithDetail("field", "unitPrice")
	}
	if p.ValidFrom.IsZero() {
		return apperror.NewValidation("valid from is required").WithDetail("field", "validFrom")
	}
	if p.Status != StatusActive && p.Status != StatusInactive {
		return apperror.NewValidation("status must be active or inactive").WithDetail("field", "status")
	}
	return nil
}

// ActiveOn picks the price in effect on date from a product's history.
// Returns false when no active row starts on or before date.
func ActiveOn(history []Price, date time.Time) (Price, bool) {
	day := truncateDay(date)
	var best Price
	found := false
	for _, p := range history {
		if p.Status != StatusActive || truncateDay(p.ValidFrom).After(day) {
			continue
		}
		if !found || p.ValidFrom.After(best.ValidFrom) {
			best = p
			found = true
		}
	}
	return best, found
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
