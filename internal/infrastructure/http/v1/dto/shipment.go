package dto

import (
	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/shipment"
)

// ShipmentItemRequest is one requested line. Omit unitPrice (or send 0) to
// use the product's price history.
type ShipmentItemRequest struct {
	ProductID id.ID            `json:"productId"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

// RegisterShipmentRequest is the body of POST /shipments. Item checks are
// left to the service so that an empty list maps to NO_ITEMS.
type RegisterShipmentRequest struct {
	PartnerID    *id.ID                `json:"partnerId"`
	ShipmentDate Date                  `json:"shipmentDate"`
	ShipmentType string                `json:"shipmentType" binding:"omitempty,shipment_type"`
	Reason       string                `json:"reason" binding:"max=500"`
	Remarks      string                `json:"remarks" binding:"max=1000"`
	Items        []ShipmentItemRequest `json:"items"`
}

// ToInput converts the request to a shipment input. An omitted type is a
// standard shipment.
func (r *RegisterShipmentRequest) ToInput() shipment.RegisterInput {
	in := shipment.RegisterInput{
		PartnerHint: r.PartnerID,
		Date:        r.ShipmentDate.Time,
		Type:        shipment.Type(r.ShipmentType),
		Reason:      r.Reason,
		Remarks:     r.Remarks,
		Items:       make([]shipment.RequestItem, len(r.Items)),
	}
	if in.Type == "" {
		in.Type = shipment.TypeStandard
	}
	for i, item := range r.Items {
		in.Items[i] = shipment.RequestItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return in
}

// ShipmentQuery holds the query parameters of GET /shipments.
type ShipmentQuery struct {
	PageQuery
	PartnerID string `form:"partnerId" binding:"omitempty,uuid"`
	FromDate  string `form:"fromDate"`
	ToDate    string `form:"toDate"`
	Unbilled  bool   `form:"unbilled"`
}
