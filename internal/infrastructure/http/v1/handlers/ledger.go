package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/ledger"
	"ledgerbook/internal/infrastructure/http/v1/dto"
)

// LedgerService is the ledger engine API used over HTTP.
type LedgerService interface {
	Apply(ctx context.Context, in ledger.ApplyInput) (*ledger.Movement, error)
	Reverse(ctx context.Context, movementID id.ID) error
	BulkApply(ctx context.Context, items []ledger.ApplyInput) ledger.BulkResult
	BulkReverse(ctx context.Context, movementIDs []id.ID) ledger.BulkResult
	Adjust(ctx context.Context, in ledger.AdjustInput) (*ledger.AdjustResult, error)
	Counters(ctx context.Context, productID id.ID) (ledger.Counters, error)
	ListMovements(ctx context.Context, filter ledger.MovementFilter) ([]ledger.Movement, error)
}

var _ LedgerService = (*ledger.Service)(nil)

// LedgerHandler serves ledger writes and counter reads.
type LedgerHandler struct {
	*BaseHandler
	service LedgerService
}

// NewLedgerHandler creates a ledger handler.
func NewLedgerHandler(base *BaseHandler, service LedgerService) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

// Apply handles POST /ledger/movements.
func (h *LedgerHandler) Apply(c *gin.Context) {
	var req dto.ApplyMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.service.Apply(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Mutation(c, http.StatusCreated, fmt.Sprintf("%s of %d recorded", m.Kind, m.QuantityChange), m)
}

// Reverse handles DELETE /ledger/movements/:id.
func (h *LedgerHandler) Reverse(c *gin.Context) {
	movementID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Reverse(c.Request.Context(), movementID); err != nil {
		h.Error(c, err)
		return
	}

	h.Mutation(c, http.StatusOK, "movement reversed", dto.NewIDResponse(movementID))
}

// BulkApply handles POST /ledger/movements/bulk. Per-item failures are
// reported in the body; the status is 200 even when some items failed.
func (h *LedgerHandler) BulkApply(c *gin.Context) {
	var req dto.BulkApplyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res := h.service.BulkApply(c.Request.Context(), req.ToInputs())
	h.bulkResponse(c, res)
}

// BulkReverse handles POST /ledger/movements/bulk-reverse.
func (h *LedgerHandler) BulkReverse(c *gin.Context) {
	var req dto.BulkReverseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res := h.service.BulkReverse(c.Request.Context(), req.MovementIDs)
	h.bulkResponse(c, res)
}

func (h *LedgerHandler) bulkResponse(c *gin.Context, res ledger.BulkResult) {
	c.JSON(http.StatusOK, dto.MutationResponse{
		Success: res.ErrorCount == 0,
		Message: fmt.Sprintf("%d succeeded, %d failed", res.SuccessCount, res.ErrorCount),
		Data:    res,
	})
}

// Adjust handles POST /ledger/adjustments.
func (h *LedgerHandler) Adjust(c *gin.Context) {
	var req dto.AdjustRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Adjust(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	msg := "counters already match"
	if len(res.Movements) > 0 {
		msg = fmt.Sprintf("%d adjustment entries recorded", len(res.Movements))
	}
	h.Mutation(c, http.StatusOK, msg, res)
}

// Counters handles GET /ledger/counters/:productId.
func (h *LedgerHandler) Counters(c *gin.Context) {
	productID, ok := h.ParamID(c, "productId")
	if !ok {
		return
	}

	counters, err := h.service.Counters(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, counters)
}

// ListMovements handles GET /ledger/movements.
func (h *LedgerHandler) ListMovements(c *gin.Context) {
	var q dto.MovementQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := ledger.MovementFilter{Limit: q.Limit, Offset: q.Offset}
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

	items, err := h.service.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []ledger.Movement{}
	}

	h.OK(c, dto.ItemsResponse[ledger.Movement]{Items: items})
}
