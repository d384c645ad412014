package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/ledger"
	"ledgerbook/internal/domain/reports"
	"ledgerbook/internal/infrastructure/http/v1/dto"
	"ledgerbook/internal/infrastructure/storage/postgres"
)

// ReportsService is the read-side API used over HTTP.
type ReportsService interface {
	StockBalances(ctx context.Context, filter reports.StockBalanceFilter) (*reports.StockBalanceReport, error)
	MovementHistory(ctx context.Context, filter reports.MovementHistoryFilter) ([]reports.MovementHistoryRow, error)
	ShipmentHistory(ctx context.Context, filter reports.ShipmentHistoryFilter) ([]reports.ShipmentHistoryRow, error)
	Dashboard(ctx context.Context) (*reports.Dashboard, error)
	Reconcile(ctx context.Context) (*reports.ReconciliationReport, error)
}

var _ ReportsService = (*reports.Service)(nil)

// AuditHistory reads sys_audit snapshots.
type AuditHistory interface {
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

var _ AuditHistory = (*postgres.AuditRecorder)(nil)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service ReportsService
	audit   AuditHistory
}

// NewReportsHandler creates a new reports handler. audit may be nil, in which
// case the audit endpoint answers NOT_FOUND.
func NewReportsHandler(base *BaseHandler, service ReportsService, audit AuditHistory) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// StockBalances handles GET /reports/stock-balances.
func (h *ReportsHandler) StockBalances(c *gin.Context) {
	var q dto.StockBalanceQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := reports.StockBalanceFilter{
		Search:      q.Search,
		ExcludeZero: q.ExcludeZero,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	var ok bool
	if filter.PartnerID, ok = h.OptionalID(c, "partnerId", q.PartnerID); !ok {
		return
	}

	report, err := h.service.StockBalances(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// MovementHistory handles GET /reports/movements.
func (h *ReportsHandler) MovementHistory(c *gin.Context) {
	var q dto.MovementQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := reports.MovementHistoryFilter{Limit: q.Limit, Offset: q.Offset}
	var ok bool
	if filter.ProductID, ok = h.OptionalID(c, "productId", q.ProductID); !ok {
		return
	}
	if filter.FromDate, ok = h.OptionalDate(c, "fromDate", q.FromDate); !ok {
		return
	}
	if filter.ToDate, ok = h.OptionalDate(c, "toDate", q.ToDate); !ok {
		return
	}
	for _, t := range q.Types {
		filter.Kinds = append(filter.Kinds, ledger.Kind(t))
	}

	rows, err := h.service.MovementHistory(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	if rows == nil {
		rows = []reports.MovementHistoryRow{}
	}

	h.OK(c, dto.ItemsResponse[reports.MovementHistoryRow]{Items: rows})
}

// ShipmentHistory handles GET /reports/shipments.
func (h *ReportsHandler) ShipmentHistory(c *gin.Context) {
	var q dto.ShipmentHistoryQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := reports.ShipmentHistoryFilter{Limit: q.Limit, Offset: q.Offset}
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
	if q.Unbilled != "" {
		unbilled := q.Unbilled == "true"
		filter.Unbilled = &unbilled
	}

	rows, err := h.service.ShipmentHistory(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	if rows == nil {
		rows = []reports.ShipmentHistoryRow{}
	}

	h.OK(c, dto.ItemsResponse[reports.ShipmentHistoryRow]{Items: rows})
}

// Dashboard handles GET /reports/dashboard.
func (h *ReportsHandler) Dashboard(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, d)
}

// Reconcile handles GET /reports/reconciliation.
func (h *ReportsHandler) Reconcile(c *gin.Context) {
	report, err := h.service.Reconcile(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// AuditTrail handles GET /reports/audit/:entityType/:id.
func (h *ReportsHandler) AuditTrail(c *gin.Context) {
	entityType := c.Param("entityType")
	entityID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if h.audit == nil {
		h.Error(c, apperror.NewNotFound("audit trail", entityID))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	if limit <= 0 || limit > 500 {
		h.Error(c, apperror.NewValidation("limit must be between 1 and 500").WithDetail("limit", strconv.Itoa(limit)))
		return
	}

	entries, err := h.audit.History(c.Request.Context(), entityType, entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	if entries == nil {
		entries = []postgres.AuditEntry{}
	}

	h.OK(c, dto.ItemsResponse[postgres.AuditEntry]{Items: entries})
}
