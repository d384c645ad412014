package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/tx"
	"ledgerbook/internal/domain/ledger"
	"ledgerbook/internal/domain/ledger/ledgertest"
)

func setupLedger(t *testing.T, actor string) (*gin.Engine, *ledgertest.MemoryRepository, id.ID) {
	t.Helper()
	repo := ledgertest.NewMemoryRepository()
	productID := id.New()
	repo.AddProduct(productID)

	h := NewLedgerHandler(NewBaseHandler(), ledger.NewService(repo, tx.Passthrough{}))
	r := newTestEngine(actor)
	r.GET("/ledger/movements", h.ListMovements)
	r.POST("/ledger/movements", h.Apply)
	r.DELETE("/ledger/movements/:id", h.Reverse)
	r.POST("/ledger/movements/bulk", h.BulkApply)
	r.POST("/ledger/movements/bulk-reverse", h.BulkReverse)
	r.POST("/ledger/adjustments", h.Adjust)
	r.GET("/ledger/counters/:productId", h.Counters)
	return r, repo, productID
}

func TestLedgerHandler_Apply(t *testing.T) {
	r, repo, productID := setupLedger(t, "clerk")

	w := doJSON(t, r, http.MethodPost, "/ledger/movements", map[string]any{
		"productId":      productID,
		"movementType":   "receiving",
		"quantityChange": 20,
		"reason":         "delivery",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decode(t, w)
	assert.True(t, env.Success)

	var m ledger.Movement
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, ledger.KindReceiving, m.Kind)
	assert.Equal(t, "clerk", m.CreatedBy)

	c, err := repo.GetCounters(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), c.Raw)
}

func TestLedgerHandler_Apply_Errors(t *testing.T) {
	t.Run("unknown movement type is rejected by binding", func(t *testing.T) {
		r, _, productID := setupLedger(t, "clerk")
		w := doJSON(t, r, http.MethodPost, "/ledger/movements", map[string]any{
			"productId":      productID,
			"movementType":   "teleport",
			"quantityChange": 1,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperror.CodeValidation, decode(t, w).Code)
	})

	t.Run("wrong sign", func(t *testing.T) {
		r, _, productID := setupLedger(t, "clerk")
		w := doJSON(t, r, http.MethodPost, "/ledger/movements", map[string]any{
			"productId":      productID,
			"movementType":   "shipping",
			"quantityChange": 5,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperror.CodeValidation, decode(t, w).Code)
	})

	t.Run("no actor", func(t *testing.T) {
		r, _, productID := setupLedger(t, "")
		w := doJSON(t, r, http.MethodPost, "/ledger/movements", map[string]any{
			"productId":      productID,
			"movementType":   "receiving",
			"quantityChange": 1,
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperror.CodeUnauthenticated, decode(t, w).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		r, _, _ := setupLedger(t, "clerk")
		w := doJSON(t, r, http.MethodPost, "/ledger/movements", "{")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLedgerHandler_Reverse(t *testing.T) {
	r, repo, productID := setupLedger(t, "clerk")

	w := doJSON(t, r, http.MethodPost, "/ledger/movements", map[string]any{
		"productId":      productID,
		"movementType":   "production_finished",
		"quantityChange": 4,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var m ledger.Movement
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &m))

	w = doJSON(t, r, http.MethodDelete, "/ledger/movements/"+m.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	c, err := repo.GetCounters(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Counters{ProductID: productID}, c)
	assert.Empty(t, repo.Movements())

	// Second reversal of the same entry.
	w = doJSON(t, r, http.MethodDelete, "/ledger/movements/"+m.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/ledger/movements/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerHandler_BulkApply_ReportsItemFailures(t *testing.T) {
	r, repo, productID := setupLedger(t, "clerk")

	w := doJSON(t, r, http.MethodPost, "/ledger/movements/bulk", map[string]any{
		"items": []map[string]any{
			{"productId": productID, "movementType": "receiving", "quantityChange": 10},
			{"productId": productID, "movementType": "receiving", "quantityChange": -1},
			{"productId": id.New(), "movementType": "receiving", "quantityChange": 3},
			{"productId": productID, "movementType": "production_raw", "quantityChange": -4},
		},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode(t, w)
	assert.False(t, env.Success)

	var res ledger.BulkResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 2, res.ErrorCount)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Equal(t, 2, res.Errors[1].Index)

	c, err := repo.GetCounters(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), c.Raw)
}

func TestLedgerHandler_BulkReverse(t *testing.T) {
	r, repo, productID := setupLedger(t, "clerk")
	w := doJSON(t, r, http.MethodPost, "/ledger/movements", map[string]any{
		"productId": productID, "movementType": "receiving", "quantityChange": 7,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var m ledger.Movement
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &m))

	w = doJSON(t, r, http.MethodPost, "/ledger/movements/bulk-reverse", map[string]any{
		"movementIds": []id.ID{m.ID, id.New()},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res ledger.BulkResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Empty(t, repo.Movements())
}

func TestLedgerHandler_AdjustAndCounters(t *testing.T) {
	r, _, productID := setupLedger(t, "clerk")

	w := doJSON(t, r, http.MethodPost, "/ledger/adjustments", map[string]any{
		"productId": productID,
		"finished":  12,
		"reason":    "stocktake",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res ledger.AdjustResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.Equal(t, int64(12), res.After.Finished)
	require.Len(t, res.Movements, 1)
	assert.Equal(t, ledger.KindAdjustmentFinished, res.Movements[0].Kind)

	w = doJSON(t, r, http.MethodGet, "/ledger/counters/"+productID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var c ledger.Counters
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	assert.Equal(t, int64(12), c.Finished)

	w = doJSON(t, r, http.MethodPost, "/ledger/adjustments", map[string]any{
		"productId": productID,
		"raw":       -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerHandler_ListMovements(t *testing.T) {
	r, _, productID := setupLedger(t, "clerk")
	for _, q := range []int{3, 5} {
		w := doJSON(t, r, http.MethodPost, "/ledger/movements", map[string]any{
			"productId": productID, "movementType": "receiving", "quantityChange": q,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/ledger/movements?productId="+productID.String()+"&type=receiving", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Items []ledger.Movement `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Items, 2)

	w = doJSON(t, r, http.MethodGet, "/ledger/movements?fromDate=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
