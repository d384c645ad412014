package shipment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/id"
)

// Repository is the persistence contract of shipments. Implementations join
// the transaction carried by ctx.
type Repository interface {
	// ResolveOwners returns the product master rows of productIDs. Unknown
	// products are absent from the result.
	ResolveOwners(ctx context.Context, productIDs []id.ID) ([]ProductOwner, error)

	// LockPartnerDay serializes find-or-create for one (partner, date) until
	// the transaction ends.
	LockPartnerDay(ctx context.Context, partnerID id.ID, date time.Time) error

	// FindOpenForUpdate returns the confirmed, not yet invoiced header of
	// (partner, date) and locks it. Returns NotFound when there is none.
	FindOpenForUpdate(ctx context.Context, partnerID id.ID, date time.Time) (*Shipment, error)

	Create(ctx context.Context, s *Shipment) error
	AddItem(ctx context.Context, item *Item) error
	SetTotal(ctx context.Context, shipmentID id.ID, total decimal.Decimal) error

	// GetForUpdate loads and locks a header with its items.
	GetForUpdate(ctx context.Context, shipmentID id.ID) (*Shipment, error)

	// Get loads a header with its items.
	Get(ctx context.Context, shipmentID id.ID) (*Shipment, error)

	// Delete removes the header; items cascade.
	Delete(ctx context.Context, shipmentID id.ID) error

	List(ctx context.Context, filter ListFilter) ([]Shipment, error)
}
