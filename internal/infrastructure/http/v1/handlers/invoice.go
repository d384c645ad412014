package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/invoice"
	"ledgerbook/internal/infrastructure/http/v1/dto"
)

// InvoiceService is the invoice aggregator API used over HTTP.
type InvoiceService interface {
	SummarizeUnbilled(ctx context.Context, closingDate int, start, end time.Time) ([]invoice.PartnerSummary, error)
	Confirm(ctx context.Context, in invoice.ConfirmInput) (*invoice.ConfirmResult, error)
	Get(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error)
	List(ctx context.Context, filter invoice.ListFilter) ([]invoice.Invoice, error)
	TaxRate() decimal.Decimal
}

var _ InvoiceService = (*invoice.Service)(nil)

// InvoiceHandler serves unbilled summaries and invoice confirmation.
type InvoiceHandler struct {
	*BaseHandler
	service InvoiceService
}

// NewInvoiceHandler creates an invoice handler.
func NewInvoiceHandler(base *BaseHandler, service InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, service: service}
}

// UnbilledResponse is the body of GET /invoices/unbilled.
type UnbilledResponse struct {
	ClosingDate int                      `json:"closingDate"`
	PeriodStart dto.Date                 `json:"periodStart"`
	PeriodEnd   dto.Date                 `json:"periodEnd"`
	TaxRate     decimal.Decimal          `json:"taxRate"`
	Partners    []invoice.PartnerSummary `json:"partners"`
}

// Unbilled handles GET /invoices/unbilled.
func (h *InvoiceHandler) Unbilled(c *gin.Context) {
	var q dto.UnbilledQuery
	if !h.BindQuery(c, &q) {
		return
	}
	start, err := dto.ParseDate(q.PeriodStart)
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()).WithDetail("field", "periodStart"))
		return
	}
	end, err := dto.ParseDate(q.PeriodEnd)
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()).WithDetail("field", "periodEnd"))
		return
	}

	rows, err := h.service.SummarizeUnbilled(c.Request.Context(), q.ClosingDate, start, end)
	if err != nil {
		h.Error(c, err)
		return
	}
	if rows == nil {
		rows = []invoice.PartnerSummary{}
	}

	h.OK(c, UnbilledResponse{
		ClosingDate: q.ClosingDate,
		PeriodStart: dto.Date{Time: start},
		PeriodEnd:   dto.Date{Time: end},
		TaxRate:     h.service.TaxRate(),
		Partners:    rows,
	})
}

// Confirm handles POST /invoices.
func (h *InvoiceHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Confirm(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	msg := fmt.Sprintf("invoice %s issued for %d shipments", res.Number, res.ClaimedShipments)
	if res.CallerTotalMismatch {
		msg += "; subtotal differs from the submitted figure"
	}
	h.Mutation(c, http.StatusCreated, msg, res)
}

// Get handles GET /invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.Get(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, inv)
}

// List handles GET /invoices.
func (h *InvoiceHandler) List(c *gin.Context) {
	var q dto.InvoiceQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := invoice.ListFilter{Limit: q.Limit, Offset: q.Offset}
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
		items = []invoice.Invoice{}
	}

	h.OK(c, dto.ItemsResponse[invoice.Invoice]{Items: items})
}
