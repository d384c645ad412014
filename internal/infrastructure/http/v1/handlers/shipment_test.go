package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/shipment"
)

type fakeShipments struct {
	registered *shipment.RegisterInput
	listed     *shipment.ListFilter
	cancelErr  error
}

func (f *fakeShipments) Register(_ context.Context, in shipment.RegisterInput) (*shipment.RegisterResult, error) {
	f.registered = &in
	if len(in.Items) == 0 {
		return nil, apperror.NewNoItems()
	}
	sid := id.New()
	return &shipment.RegisterResult{
		ShipmentIDs: []id.ID{sid},
		Groups:      []shipment.GroupResult{{ShipmentID: sid, Number: "SHP-2024-00001", Created: true, ItemCount: len(in.Items)}},
		Message:     "1 shipment registered",
	}, nil
}

func (f *fakeShipments) Cancel(context.Context, id.ID) error { return f.cancelErr }

func (f *fakeShipments) Get(_ context.Context, shipmentID id.ID) (*shipment.Shipment, error) {
	return nil, apperror.NewNotFound("shipment", shipmentID)
}

func (f *fakeShipments) List(_ context.Context, filter shipment.ListFilter) ([]shipment.Shipment, error) {
	f.listed = &filter
	return nil, nil
}

func setupShipments(svc *fakeShipments) http.Handler {
	h := NewShipmentHandler(NewBaseHandler(), svc)
	r := newTestEngine("clerk")
	r.GET("/shipments", h.List)
	r.POST("/shipments", h.Register)
	r.GET("/shipments/:id", h.Get)
	r.DELETE("/shipments/:id", h.Cancel)
	return r
}

func TestShipmentHandler_Register_MapsRequest(t *testing.T) {
	svc := &fakeShipments{}
	r := setupShipments(svc)
	productID := id.New()

	w := doJSON(t, r, http.MethodPost, "/shipments", map[string]any{
		"shipmentDate": "2024-03-15",
		"remarks":      "morning truck",
		"items": []map[string]any{
			{"productId": productID, "quantity": 5},
			{"productId": productID, "quantity": 2, "unitPrice": "120.50"},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decode(t, w)
	assert.Equal(t, "1 shipment registered", env.Message)

	in := svc.registered
	require.NotNil(t, in)
	assert.Equal(t, shipment.TypeStandard, in.Type)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), in.Date)
	assert.Equal(t, "morning truck", in.Remarks)
	require.Len(t, in.Items, 2)
	assert.Nil(t, in.Items[0].UnitPrice)
	require.NotNil(t, in.Items[1].UnitPrice)
	assert.True(t, decimal.RequireFromString("120.50").Equal(*in.Items[1].UnitPrice))

	var res shipment.RegisterResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Len(t, res.Groups, 1)
}

func TestShipmentHandler_Register_Errors(t *testing.T) {
	t.Run("empty items reach the service", func(t *testing.T) {
		r := setupShipments(&fakeShipments{})
		w := doJSON(t, r, http.MethodPost, "/shipments", map[string]any{"items": []any{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperror.CodeNoItems, decode(t, w).Code)
	})

	t.Run("unknown shipment type", func(t *testing.T) {
		svc := &fakeShipments{}
		r := setupShipments(svc)
		w := doJSON(t, r, http.MethodPost, "/shipments", map[string]any{
			"shipmentType": "gift",
			"items":        []map[string]any{{"productId": id.New(), "quantity": 1}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperror.CodeValidation, decode(t, w).Code)
		assert.Nil(t, svc.registered)
	})

	t.Run("bad date", func(t *testing.T) {
		r := setupShipments(&fakeShipments{})
		w := doJSON(t, r, http.MethodPost, "/shipments", map[string]any{"shipmentDate": "15/03/2024"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestShipmentHandler_Cancel(t *testing.T) {
	svc := &fakeShipments{}
	r := setupShipments(svc)

	w := doJSON(t, r, http.MethodDelete, "/shipments/"+id.New().String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	svc.cancelErr = apperror.NewBusinessRule(apperror.CodeShipmentInvoiced, "shipment is already invoiced")
	w = doJSON(t, r, http.MethodDelete, "/shipments/"+id.New().String(), nil)
	assert.Equal(t, apperror.CodeShipmentInvoiced, decode(t, w).Code)
}

func TestShipmentHandler_List_ParsesFilter(t *testing.T) {
	svc := &fakeShipments{}
	r := setupShipments(svc)
	partnerID := id.New()

	w := doJSON(t, r, http.MethodGet, "/shipments?partnerId="+partnerID.String()+"&fromDate=2024-03-01&unbilled=true&limit=10", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
	f := svc.listed
	require.NotNil(t, f)
	require.NotNil(t, f.PartnerID)
	assert.Equal(t, partnerID, *f.PartnerID)
	require.NotNil(t, f.FromDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *f.FromDate)
	assert.Nil(t, f.ToDate)
	assert.True(t, f.Unbilled)
	assert.Equal(t, 10, f.Limit)

	w = doJSON(t, r, http.MethodGet, "/shipments?partnerId=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
