package invoice

import (
	"context"
	"time"

	"ledgerbook/internal/core/id"
)

// Repository is the persistence contract of invoices. Implementations join
// the transaction carried by ctx.
type Repository interface {
	// SummarizeUnbilled groups unbilled shipments dated within [start, end] of
	// partners whose closing date is closingDate.
	SummarizeUnbilled(ctx context.Context, closingDate int, start, end time.Time) ([]PartnerSummary, error)

	// LockUnbilled returns and locks the partner's unbilled shipments dated
	// within [start, end].
	LockUnbilled(ctx context.Context, partnerID id.ID, start, end time.Time) ([]ShipmentRef, error)

	Create(ctx context.Context, inv *Invoice) error

	// ClaimShipments stamps invoiceID on exactly the given shipments and
	// returns how many rows changed.
	ClaimShipments(ctx context.Context, invoiceID id.ID, shipmentIDs []id.ID) (int64, error)

	// Get loads an invoice with its claimed shipments.
	Get(ctx context.Context, invoiceID id.ID) (*Invoice, error)

	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
}
