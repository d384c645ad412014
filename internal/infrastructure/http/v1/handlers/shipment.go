package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/shipment"
	"ledgerbook/internal/infrastructure/http/v1/dto"
)

// ShipmentService is the consolidator API used over HTTP.
type ShipmentService interface {
	Register(ctx context.Context, in shipment.RegisterInput) (*shipment.RegisterResult, error)
	Cancel(ctx context.Context, shipmentID id.ID) error
	Get(ctx context.Context, shipmentID id.ID) (*shipment.Shipment, error)
	List(ctx context.Context, filter shipment.ListFilter) ([]shipment.Shipment, error)
}

var _ ShipmentService = (*shipment.Service)(nil)

// ShipmentHandler serves shipment registration and cancellation.
type ShipmentHandler struct {
	*BaseHandler
	service ShipmentService
}

// NewShipmentHandler creates a shipment handler.
func NewShipmentHandler(base *BaseHandler, service ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{BaseHandler: base, service: service}
}

// Register handles POST /shipments.
func (h *ShipmentHandler) Register(c *gin.Context) {
	var req dto.RegisterShipmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Register(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Mutation(c, http.StatusCreated, res.Message, res)
}

// Cancel handles DELETE /shipments/:id.
func (h *ShipmentHandler) Cancel(c *gin.Context) {
	shipmentID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), shipmentID); err != nil {
		h.Error(c, err)
		return
	}

	h.Mutation(c, http.StatusOK, "shipment cancelled", dto.NewIDResponse(shipmentID))
}

// Get handles GET /shipments/:id.
func (h *ShipmentHandler) Get(c *gin.Context) {
	shipmentID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	s, err := h.service.Get(c.Request.Context(), shipmentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, s)
}

// List handles GET /shipments.
func (h *ShipmentHandler) List(c *gin.Context) {
	var q dto.ShipmentQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := shipment.ListFilter{Unbilled: q.Unbilled, Limit: q.Limit, Offset: q.Offset}
	var ok bool
	if filter.PartnerID, ok = h.OptionalID(c, "partnerId", q.PartnerID); !ok {
		return
	}
	if filter.FromDate, ok = h.OptionalDate(c, "fromDate", q.FromDate); !ok {
		return
	}
	if filter.ToDate, ok = h.OptionalDate(c, "toDate", q.ToDate); !ok {
		return
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []shipment.Shipment{}
	}

	h.OK(c, dto.ItemsResponse[shipment.Shipment]{Items: items})
}
