// Package reports provides the read-only views over the ledger, shipments and
// invoices.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/ledger"
)

// --- Stock Balances ---

// StockBalanceFilter defines filter for the stock balance report.
type StockBalanceFilter struct {
	PartnerID *id.ID
	Search    string

	// Hide products whose three counters are all zero
	ExcludeZero bool

	Limit  int
	Offset int
}

// StockBalanceRow is one product with its counters.
type StockBalanceRow struct {
	ProductID     id.ID     `db:"product_id" json:"productId"`
	ProductCode   string    `db:"product_code" json:"productCode"`
	ProductName   string    `db:"product_name" json:"productName"`
	Unit          string    `db:"unit" json:"unit"`
	PartnerID     *id.ID    `db:"partner_id" json:"partnerId,omitempty"`
	PartnerName   *string   `db:"partner_name" json:"partnerName,omitempty"`
	Raw           int64     `db:"raw" json:"raw"`
	Finished      int64     `db:"finished" json:"finished"`
	Defective     int64     `db:"defective" json:"defective"`
	LastUpdatedAt time.Time `db:"last_updated_at" json:"lastUpdatedAt"`
}

// StockBalanceReport represents the full stock balance report.
type StockBalanceReport struct {
	Items      []StockBalanceRow `json:"items"`
	TotalItems int               `json:"totalItems"`

	// Summary over the returned page
	TotalRaw       int64 `json:"totalRaw"`
	TotalFinished  int64 `json:"totalFinished"`
	TotalDefective int64 `json:"totalDefective"`
}

// --- Movement History ---

// MovementHistoryFilter defines filter for the movement history.
type MovementHistoryFilter struct {
	ProductID *id.ID
	Kinds     []ledger.Kind
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}

// MovementHistoryRow is a ledger entry joined with its product.
type MovementHistoryRow struct {
	ledger.Movement
	ProductName string `db:"product_name" json:"productName"`
}

// --- Shipment History ---

// ShipmentHistoryFilter defines filter for the shipment history.
type ShipmentHistoryFilter struct {
	PartnerID *id.ID
	FromDate  *time.Time
	ToDate    *time.Time

	// nil: all, true: only unbilled, false: only invoiced
	Unbilled *bool

	Limit  int
	Offset int
}

// ShipmentHistoryRow is a shipment header joined with its partner and invoice.
type ShipmentHistoryRow struct {
	ShipmentID    id.ID           `db:"shipment_id" json:"shipmentId"`
	Number        string          `db:"number" json:"number"`
	ShipmentDate  time.Time       `db:"shipment_date" json:"shipmentDate"`
	PartnerID     id.ID           `db:"partner_id" json:"partnerId"`
	PartnerName   string          `db:"partner_name" json:"partnerName"`
	ItemCount     int             `db:"item_count" json:"itemCount"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"totalAmount"`
	InvoiceID     *id.ID          `db:"invoice_id" json:"invoiceId,omitempty"`
	InvoiceNumber *string         `db:"invoice_number" json:"invoiceNumber,omitempty"`
}

// --- Dashboard ---

// Dashboard holds the headline figures.
type Dashboard struct {
	ProductCount           int             `db:"product_count" json:"productCount"`
	TotalRaw               int64           `db:"total_raw" json:"totalRaw"`
	TotalFinished          int64           `db:"total_finished" json:"totalFinished"`
	TotalDefective         int64           `db:"total_defective" json:"totalDefective"`
	UnbilledShipments      int             `db:"unbilled_shipments" json:"unbilledShipments"`
	UnbilledAmount         decimal.Decimal `db:"unbilled_amount" json:"unbilledAmount"`
	ShipmentsThisMonth     int             `db:"shipments_this_month" json:"shipmentsThisMonth"`
	ShippedAmountThisMonth decimal.Decimal `db:"shipped_amount_this_month" json:"shippedAmountThisMonth"`
	MovementsToday         int             `db:"movements_today" json:"movementsToday"`
}

// --- Reconciliation ---

// CounterComparison is one product's stored counters next to the sums of its
// live ledger entries.
type CounterComparison struct {
	ProductID   id.ID  `db:"product_id" json:"productId"`
	ProductName string `db:"product_name" json:"productName"`

	StoredRaw       int64 `db:"stored_raw" json:"storedRaw"`
	StoredFinished  int64 `db:"stored_finished" json:"storedFinished"`
	StoredDefective int64 `db:"stored_defective" json:"storedDefective"`

	LedgerRaw       int64 `db:"ledger_raw" json:"ledgerRaw"`
	LedgerFinished  int64 `db:"ledger_finished" json:"ledgerFinished"`
	LedgerDefective int64 `db:"ledger_defective" json:"ledgerDefective"`
}

// Stored returns the stored value of counter c.
func (c CounterComparison) Stored(counter ledger.Counter) int64 {
	return ledger.Counters{Raw: c.StoredRaw, Finished: c.StoredFinished, Defective: c.StoredDefective}.Get(counter)
}

// Ledger returns the ledger sum of counter c.
func (c CounterComparison) Ledger(counter ledger.Counter) int64 {
	return ledger.Counters{Raw: c.LedgerRaw, Finished: c.LedgerFinished, Defective: c.LedgerDefective}.Get(counter)
}

// Divergence is a counter whose stored value differs from its ledger sum.
type Divergence struct {
	ProductID   id.ID          `json:"productId"`
	ProductName string         `json:"productName"`
	Counter     ledger.Counter `json:"counter"`
	Stored      int64          `json:"stored"`
	LedgerSum   int64          `json:"ledgerSum"`
}

// ReconciliationReport lists every divergent counter.
type ReconciliationReport struct {
	CheckedAt       time.Time    `json:"checkedAt"`
	CheckedProducts int          `json:"checkedProducts"`
	Divergences     []Divergence `json:"divergences"`
}
