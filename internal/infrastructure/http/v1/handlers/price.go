package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/catalogs/price"
	"ledgerbook/internal/infrastructure/http/v1/dto"
)

// PriceService is the price history API used over HTTP.
type PriceService interface {
	Create(ctx context.Context, p *price.Price) error
	ListByProduct(ctx context.Context, productID id.ID) ([]price.Price, error)
	Deactivate(ctx context.Context, priceID id.ID) error
}

var _ PriceService = (*price.Service)(nil)

// PriceHandler serves a product's unit price history.
type PriceHandler struct {
	*BaseHandler
	service PriceService
}

// NewPriceHandler creates a price handler.
func NewPriceHandler(base *BaseHandler, service PriceService) *PriceHandler {
	return &PriceHandler{BaseHandler: base, service: service}
}

// List handles GET /catalogs/products/:id/prices.
func (h *PriceHandler) List(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	prices, err := h.service.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if prices == nil {
		prices = []price.Price{}
	}

	h.OK(c, dto.ItemsResponse[price.Price]{Items: prices})
}

// Create handles POST /catalogs/products/:id/prices.
func (h *PriceHandler) Create(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.CreatePriceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToEntity(productID)
	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, p)
}

// Deactivate handles DELETE /catalogs/prices/:id.
func (h *PriceHandler) Deactivate(c *gin.Context) {
	priceID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), priceID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
