package shipment_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/apperror"
	appctx "ledgerbook/internal/core/context"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/numerator"
	"ledgerbook/internal/core/tx"
	"ledgerbook/internal/domain/ledger"
	"ledgerbook/internal/domain/ledger/ledgertest"
	"ledgerbook/internal/domain/shipment"
)

type memoryRepo struct {
	mu        sync.Mutex
	owners    map[id.ID]shipment.ProductOwner
	shipments map[id.ID]*shipment.Shipment
	locks     []string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		owners:    make(map[id.ID]shipment.ProductOwner),
		shipments: make(map[id.ID]*shipment.Shipment),
	}
}

func (r *memoryRepo) ResolveOwners(_ context.Context, productIDs []id.ID) ([]shipment.ProductOwner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []shipment.ProductOwner
	for _, pid := range productIDs {
		if o, ok := r.owners[pid]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memoryRepo) LockPartnerDay(_ context.Context, partnerID id.ID, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks = append(r.locks, partnerID.String()+"/"+date.Format(time.DateOnly))
	return nil
}

func (r *memoryRepo) FindOpenForUpdate(_ context.Context, partnerID id.ID, date time.Time) (*shipment.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.shipments {
		if s.PartnerID == partnerID && s.ShipmentDate.Equal(date) && s.Status == shipment.StatusConfirmed && s.InvoiceID == nil {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("shipment", partnerID)
}

func (r *memoryRepo) Create(_ context.Context, s *shipment.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.shipments[s.ID] = &cp
	return nil
}

func (r *memoryRepo) AddItem(_ context.Context, item *shipment.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shipments[item.ShipmentID]
	if !ok {
		return apperror.NewNotFound("shipment", item.ShipmentID)
	}
	s.Items = append(s.Items, *item)
	return nil
}

func (r *memoryRepo) SetTotal(_ context.Context, shipmentID id.ID, total decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shipments[shipmentID]
	if !ok {
		return apperror.NewNotFound("shipment", shipmentID)
	}
	s.TotalAmount = total
	return nil
}

func (r *memoryRepo) GetForUpdate(ctx context.Context, shipmentID id.ID) (*shipment.Shipment, error) {
	return r.Get(ctx, shipmentID)
}

func (r *memoryRepo) Get(_ context.Context, shipmentID id.ID) (*shipment.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shipments[shipmentID]
	if !ok {
		return nil, apperror.NewNotFound("shipment", shipmentID)
	}
	cp := *s
	cp.Items = append([]shipment.Item(nil), s.Items...)
	return &cp, nil
}

func (r *memoryRepo) Delete(_ context.Context, shipmentID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shipments[shipmentID]; !ok {
		return apperror.NewNotFound("shipment", shipmentID)
	}
	delete(r.shipments, shipmentID)
	return nil
}

func (r *memoryRepo) List(_ context.Context, f shipment.ListFilter) ([]shipment.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []shipment.Shipment
	for _, s := range r.shipments {
		if f.PartnerID != nil && s.PartnerID != *f.PartnerID {
			continue
		}
		if f.Unbilled && s.InvoiceID != nil {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

type fixedPrices map[id.ID]decimal.Decimal

func (p fixedPrices) UnitPriceOn(_ context.Context, productID id.ID, _ time.Time) (decimal.Decimal, error) {
	return p[productID], nil
}

type fixture struct {
	ctx     context.Context
	ledger  *ledger.Service
	stock   *ledgertest.MemoryRepository
	repo    *memoryRepo
	prices  fixedPrices
	svc     *shipment.Service
	today   time.Time
	partner id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stock := ledgertest.NewMemoryRepository()
	led := ledger.NewService(stock, tx.Passthrough{})
	repo := newMemoryRepo()
	prices := fixedPrices{}
	return &fixture{
		ctx:    appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "user-1"}),
		ledger: led,
		stock:  stock,
		repo:   repo,
		prices: prices,
		svc: shipment.NewService(shipment.Deps{
			Repo:      repo,
			Ledger:    led,
			Prices:    prices,
			TxManager: tx.Passthrough{},
			Numerator: &numerator.StaticGenerator{},
		}),
		today:   time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC),
		partner: id.New(),
	}
}

func (f *fixture) product(t *testing.T, owner id.ID, finished, defective int64) id.ID {
	t.Helper()
	p := id.New()
	f.stock.AddProduct(p)
	f.repo.owners[p] = shipment.ProductOwner{ProductID: p, ProductName: "part", PartnerID: &owner}
	if finished > 0 {
		_, err := f.ledger.Apply(f.ctx, ledger.ApplyInput{ProductID: p, Kind: ledger.KindProductionFinished, Quantity: finished})
		require.NoError(t, err)
	}
	if defective > 0 {
		_, err := f.ledger.Apply(f.ctx, ledger.ApplyInput{ProductID: p, Kind: ledger.KindProductionDefective, Quantity: defective})
		require.NoError(t, err)
	}
	return p
}

func (f *fixture) counters(t *testing.T, p id.ID) ledger.Counters {
	t.Helper()
	c, err := f.ledger.Counters(f.ctx, p)
	require.NoError(t, err)
	return c
}

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestRegister_DepletesFinishedAndCreatesHeader(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, f.partner, 50, 0)

	res, err := f.svc.Register(f.ctx, shipment.RegisterInput{
		Items: []shipment.RequestItem{{ProductID: p, Quantity: 30, UnitPrice: price(200)}},
		Date:  f.today,
		Type:  shipment.TypeStandard,
	})
	require.NoError(t, err)

	require.Len(t, res.ShipmentIDs, 1)
	assert.Equal(t, "Shipment registered for 1 partner", res.Message)
	assert.True(t, res.Groups[0].Created)
	assert.Equal(t, "SHP-2024-00001", res.Groups[0].Number)
	assert.Equal(t, int64(20), f.counters(t, p).Finished)

	sh, err := f.svc.Get(f.ctx, res.ShipmentIDs[0])
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(6000).Equal(sh.TotalAmount))
	require.Len(t, sh.Items, 1)
	assert.Equal(t, ledger.KindShipping, sh.Items[0].MovementType)
}

func TestRegister_ConsolidatesSamePartnerAndDay(t *testing.T) {
	f := newFixture(t)
	p1 := f.product(t, f.partner, 10, 0)
	p2 := f.product(t, f.partner, 10, 0)

	first, err := f.svc.Register(f.ctx, shipment.RegisterInput{
		Items: []shipment.RequestItem{{ProductID: p1, Quantity: 2, UnitPrice: price(100)}},
		Date:  f.today,
		Type:  shipment.TypeStandard,
	})
	require.NoError(t, err)

	second, err := f.svc.Register(f.ctx, shipment.RegisterInput{
		Items: []shipment.RequestItem{{ProductID: p2, Quantity: 3, UnitPrice: price(50)}},
		Date:  f.today.Add(15 * time.Hour),
		Type:  shipment.TypeStandard,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ShipmentIDs, second.ShipmentIDs)
	assert.False(t, second.Groups[0].Created)

	sh, err := f.svc.Get(f.ctx, first.ShipmentIDs[0])
	require.NoError(t, err)
	assert.Len(t, sh.Items, 2)
	assert.True(t, decimal.NewFromInt(350).Equal(sh.TotalAmount), "total %s", sh.TotalAmount)
}

func TestRegister_SplitsByOwningPartner(t *testing.T) {
	f := newFixture(t)
	other := id.New()
	p1 := f.product(t, f.partner, 5, 0)
	p2 := f.product(t, other, 5, 0)

	res, err := f.svc.Register(f.ctx, shipment.RegisterInput{
		PartnerHint: &f.partner,
		Items: []shipment.RequestItem{
			{ProductID: p1, Quantity: 1, UnitPrice: price(10)},
			{ProductID: p2, Quantity: 1, UnitPrice: price(10)},
		},
		Date: f.today,
		Type: shipment.TypeStandard,
	})
	require.NoError(t, err)

	assert.Len(t, res.ShipmentIDs, 2)
	assert.Equal(t, "Shipments registered for 2 partners", res.Message)
	assert.Less(t, res.Groups[0].PartnerID.String(), res.Groups[1].PartnerID.String())
}

func TestRegister_PriceResolution(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, f.partner, 0, 10)
	f.prices[p] = decimal.NewFromInt(120)

	t.Run("history price when caller sends zero", func(t *testing.T) {
		res, err := f.svc.Register(f.ctx, shipment.RegisterInput{
			Items: []shipment.RequestItem{{ProductID: p, Quantity: 2, UnitPrice: price(0)}},
			Date:  f.today,
			Type:  shipment.TypeReturnBillable,
		})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(240).Equal(res.Groups[0].AddedAmount))
	})

	t.Run("free returns are never charged", func(t *testing.T) {
		res, err := f.svc.Register(f.ctx, shipment.RegisterInput{
			Items: []shipment.RequestItem{{ProductID: p, Quantity: 2, UnitPrice: price(999)}},
			Date:  f.today.AddDate(0, 0, 1),
			Type:  shipment.TypeReturnFree,
		})
		require.NoError(t, err)
		assert.True(t, res.Groups[0].AddedAmount.IsZero())
	})

	assert.Equal(t, int64(6), f.counters(t, p).Defective)
}

func TestRegister_Rejects(t *testing.T) {
	f := newFixture(t)
	owned := f.product(t, f.partner, 5, 0)
	orphan := id.New()
	f.stock.AddProduct(orphan)
	f.repo.owners[orphan] = shipment.ProductOwner{ProductID: orphan, ProductName: "loose"}

	cases := []struct {
		name string
		in   shipment.RegisterInput
		code string
	}{
		{"no items", shipment.RegisterInput{Date: f.today, Type: shipment.TypeStandard}, apperror.CodeNoItems},
		{"unknown type", shipment.RegisterInput{Items: []shipment.RequestItem{{ProductID: owned, Quantity: 1}}, Date: f.today, Type: "gift"}, apperror.CodeValidation},
		{"zero quantity", shipment.RegisterInput{Items: []shipment.RequestItem{{ProductID: owned}}, Date: f.today, Type: shipment.TypeStandard}, apperror.CodeValidation},
		{"product without partner", shipment.RegisterInput{Items: []shipment.RequestItem{{ProductID: orphan, Quantity: 1}}, Date: f.today, Type: shipment.TypeStandard}, apperror.CodePartnerNotFound},
		{"unknown product", shipment.RegisterInput{Items: []shipment.RequestItem{{ProductID: id.New(), Quantity: 1}}, Date: f.today, Type: shipment.TypeStandard}, apperror.CodePartnerNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(f.ctx, tc.in)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tc.code), "got %v", err)
		})
	}

	assert.Equal(t, int64(5), f.counters(t, owned).Finished)
}

func TestRegister_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, f.partner, 5, 0)

	_, err := f.svc.Register(context.Background(), shipment.RegisterInput{
		Items: []shipment.RequestItem{{ProductID: p, Quantity: 1}},
		Date:  f.today,
		Type:  shipment.TypeStandard,
	})

	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthenticated))
}

func TestCancel_CreditsOriginatingCounter(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, f.partner, 10, 10)

	shipped, err := f.svc.Register(f.ctx, shipment.RegisterInput{
		Items: []shipment.RequestItem{{ProductID: p, Quantity: 4, UnitPrice: price(1)}},
		Date:  f.today,
		Type:  shipment.TypeStandard,
	})
	require.NoError(t, err)
	returned, err := f.svc.Register(f.ctx, shipment.RegisterInput{
		Items:  []shipment.RequestItem{{ProductID: p, Quantity: 3}},
		Date:   f.today.AddDate(0, 0, 1),
		Type:   shipment.TypeReturnFree,
		Reason: "scratched",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(f.ctx, shipped.ShipmentIDs[0]))
	require.NoError(t, f.svc.Cancel(f.ctx, returned.ShipmentIDs[0]))

	c := f.counters(t, p)
	assert.Equal(t, int64(10), c.Finished)
	assert.Equal(t, int64(10), c.Defective)

	kinds := map[ledger.Kind]int{}
	for _, m := range f.stock.Movements() {
		kinds[m.Kind]++
	}
	assert.Equal(t, 1, kinds[ledger.KindShipping])
	assert.Equal(t, 1, kinds[ledger.KindShippingCancel])
	assert.Equal(t, 1, kinds[ledger.KindReturnFree])
	assert.Equal(t, 1, kinds[ledger.KindReturnCancel])

	_, err = f.svc.Get(f.ctx, shipped.ShipmentIDs[0])
	assert.True(t, apperror.IsNotFound(err))
}

func TestCancel_RefusesInvoicedShipment(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, f.partner, 10, 0)

	res, err := f.svc.Register(f.ctx, shipment.RegisterInput{
		Items: []shipment.RequestItem{{ProductID: p, Quantity: 1, UnitPrice: price(5)}},
		Date:  f.today,
		Type:  shipment.TypeStandard,
	})
	require.NoError(t, err)
	invoiceID := id.New()
	f.repo.shipments[res.ShipmentIDs[0]].InvoiceID = &invoiceID

	err = f.svc.Cancel(f.ctx, res.ShipmentIDs[0])

	assert.True(t, apperror.HasCode(err, apperror.CodeShipmentInvoiced))
	assert.Equal(t, int64(9), f.counters(t, p).Finished)
}

func TestCancel_UnknownShipment(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Cancel(f.ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	p := id.New()
	f.stock.AddProduct(p)
	f.repo.owners[p] = shipment.ProductOwner{ProductID: p, PartnerID: &f.partner}

	steps := []ledger.ApplyInput{
		{ProductID: p, Kind: ledger.KindReceiving, Quantity: 100},
		{ProductID: p, Kind: ledger.KindProductionRaw, Quantity: -60},
		{ProductID: p, Kind: ledger.KindProductionFinished, Quantity: 50},
		{ProductID: p, Kind: ledger.KindProductionDefective, Quantity: 10},
	}
	for _, in := range steps {
		_, err := f.ledger.Apply(f.ctx, in)
		require.NoError(t, err)
	}

	res, err := f.svc.Register(f.ctx, shipment.RegisterInput{
		Items: []shipment.RequestItem{{ProductID: p, Quantity: 30, UnitPrice: price(200)}},
		Date:  f.today,
		Type:  shipment.TypeStandard,
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(6000).Equal(res.Groups[0].TotalAmount))

	c := f.counters(t, p)
	assert.Equal(t, ledger.Counters{ProductID: p, Raw: 40, Finished: 20, Defective: 10}, ledger.Counters{ProductID: c.ProductID, Raw: c.Raw, Finished: c.Finished, Defective: c.Defective})

	_, err = f.ledger.Apply(f.ctx, ledger.ApplyInput{ProductID: p, Kind: ledger.KindRepair, Quantity: 5})
	require.NoError(t, err)
	_, err = f.ledger.Apply(f.ctx, ledger.ApplyInput{ProductID: p, Kind: ledger.KindDispose, Quantity: -5})
	require.NoError(t, err)

	c = f.counters(t, p)
	assert.Equal(t, int64(40), c.Raw)
	assert.Equal(t, int64(25), c.Finished)
	assert.Equal(t, int64(0), c.Defective)

	for _, counter := range ledger.AllCounters {
		assert.Equal(t, c.Get(counter), f.stock.LiveSum(p, counter), "counter %s", counter)
	}
}

func TestRegister_InvoicedHeaderIsNotReused(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, f.partner, 50, 0)
	in := shipment.RegisterInput{
		Items: []shipment.RequestItem{{ProductID: p, Quantity: 10, UnitPrice: price(100)}},
		Date:  f.today,
		Type:  shipment.TypeStandard,
	}

	first, err := f.svc.Register(f.ctx, in)
	require.NoError(t, err)
	invoiceID := id.New()
	f.repo.shipments[first.ShipmentIDs[0]].InvoiceID = &invoiceID

	second, err := f.svc.Register(f.ctx, in)
	require.NoError(t, err)

	require.Len(t, second.Groups, 1)
	assert.True(t, second.Groups[0].Created)
	assert.NotEqual(t, first.ShipmentIDs[0], second.ShipmentIDs[0])
	assert.True(t, decimal.NewFromInt(1000).Equal(second.Groups[0].TotalAmount), "total %s", second.Groups[0].TotalAmount)

	billed, err := f.svc.Get(f.ctx, first.ShipmentIDs[0])
	require.NoError(t, err)
	assert.Len(t, billed.Items, 1)
	assert.True(t, decimal.NewFromInt(1000).Equal(billed.TotalAmount), "total %s", billed.TotalAmount)

	unbilled, err := f.svc.List(f.ctx, shipment.ListFilter{PartnerID: &f.partner, Unbilled: true})
	require.NoError(t, err)
	require.Len(t, unbilled, 1)
	assert.Equal(t, second.ShipmentIDs[0], unbilled[0].ID)
}

func TestRegister_ReturnReasonBecomesDefectReason(t *testing.T) {
	for _, typ := range []shipment.Type{shipment.TypeReturnBillable, shipment.TypeReturnFree} {
		t.Run(string(typ), func(t *testing.T) {
			f := newFixture(t)
			p := f.product(t, f.partner, 0, 10)

			_, err := f.svc.Register(f.ctx, shipment.RegisterInput{
				Items:  []shipment.RequestItem{{ProductID: p, Quantity: 2, UnitPrice: price(10)}},
				Date:   f.today,
				Type:   typ,
				Reason: "cracked housing",
			})
			require.NoError(t, err)

			entries, err := f.ledger.ListMovements(f.ctx, ledger.MovementFilter{
				ProductID: &p,
				Kinds:     []ledger.Kind{typ.MovementKind()},
			})
			require.NoError(t, err)
			require.Len(t, entries, 1)

			m := entries[0]
			assert.Equal(t, ledger.Kind(typ), m.Kind)
			assert.Equal(t, int64(-2), m.QuantityChange)
			require.NotNil(t, m.DefectReason)
			assert.Equal(t, "cracked housing", *m.DefectReason)
			assert.Equal(t, int64(8), f.counters(t, p).Defective)
		})
	}
}

func TestRegister_StandardReasonStaysReason(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, f.partner, 10, 0)

	_, err := f.svc.Register(f.ctx, shipment.RegisterInput{
		Items:  []shipment.RequestItem{{ProductID: p, Quantity: 1, UnitPrice: price(10)}},
		Date:   f.today,
		Type:   shipment.TypeStandard,
		Reason: "rush order",
	})
	require.NoError(t, err)

	entries, err := f.ledger.ListMovements(f.ctx, ledger.MovementFilter{ProductID: &p, Kinds: []ledger.Kind{ledger.KindShipping}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].DefectReason)
	require.NotNil(t, entries[0].Reason)
	assert.Equal(t, "rush order", *entries[0].Reason)
}
