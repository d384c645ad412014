package invoice_test

import (
	"context"
	"sort"
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
	"ledgerbook/internal/domain/invoice"
)

type storedShipment struct {
	invoice.ShipmentRef
	partnerID id.ID
	invoiceID *id.ID
}

type memoryRepo struct {
	closingDates map[id.ID]int
	shipments    []*storedShipment
	invoices     map[id.ID]*invoice.Invoice

	// afterLock runs once LockUnbilled has read its rows.
	afterLock func()
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{closingDates: map[id.ID]int{}, invoices: map[id.ID]*invoice.Invoice{}}
}

func (r *memoryRepo) ship(partnerID id.ID, date time.Time, amount int64) id.ID {
	sid := id.New()
	r.shipments = append(r.shipments, &storedShipment{
		ShipmentRef: invoice.ShipmentRef{ID: sid, Number: sid.String()[:8], ShipmentDate: date, TotalAmount: decimal.NewFromInt(amount)},
		partnerID:   partnerID,
	})
	return sid
}

func inPeriod(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}

func (r *memoryRepo) SummarizeUnbilled(_ context.Context, closingDate int, start, end time.Time) ([]invoice.PartnerSummary, error) {
	byPartner := map[id.ID]*invoice.PartnerSummary{}
	for _, s := range r.shipments {
		if s.invoiceID != nil || r.closingDates[s.partnerID] != closingDate || !inPeriod(s.ShipmentDate, start, end) {
			continue
		}
		row, ok := byPartner[s.partnerID]
		if !ok {
			row = &invoice.PartnerSummary{PartnerID: s.partnerID, ClosingDate: closingDate}
			byPartner[s.partnerID] = row
		}
		row.ShipmentCount++
		row.TotalExclTax = row.TotalExclTax.Add(s.TotalAmount)
	}
	var out []invoice.PartnerSummary
	for _, row := range byPartner {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartnerID.String() < out[j].PartnerID.String() })
	return out, nil
}

func (r *memoryRepo) LockUnbilled(_ context.Context, partnerID id.ID, start, end time.Time) ([]invoice.ShipmentRef, error) {
	var out []invoice.ShipmentRef
	for _, s := range r.shipments {
		if s.partnerID == partnerID && s.invoiceID == nil && inPeriod(s.ShipmentDate, start, end) {
			out = append(out, s.ShipmentRef)
		}
	}
	if r.afterLock != nil {
		r.afterLock()
		r.afterLock = nil
	}
	return out, nil
}

func (r *memoryRepo) Create(_ context.Context, inv *invoice.Invoice) error {
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *memoryRepo) ClaimShipments(_ context.Context, invoiceID id.ID, shipmentIDs []id.ID) (int64, error) {
	want := map[id.ID]bool{}
	for _, sid := range shipmentIDs {
		want[sid] = true
	}
	var n int64
	for _, s := range r.shipments {
		if want[s.ID] && s.invoiceID == nil {
			inv := invoiceID
			s.invoiceID = &inv
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) Get(_ context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID)
	}
	return inv, nil
}

func (r *memoryRepo) List(context.Context, invoice.ListFilter) ([]invoice.Invoice, error) {
	var out []invoice.Invoice
	for _, inv := range r.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *memoryRepo) invoiceOf(shipmentID id.ID) *id.ID {
	for _, s := range r.shipments {
		if s.ID == shipmentID {
			return s.invoiceID
		}
	}
	return nil
}

var (
	may1  = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	may31 = time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
)

func newService(repo *memoryRepo) *invoice.Service {
	return invoice.NewService(invoice.Deps{
		Repo:      repo,
		TxManager: tx.Passthrough{},
		Numerator: &numerator.StaticGenerator{},
		Now:       func() time.Time { return time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) },
	})
}

func userCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "user-1"})
}

func TestCalculateTax_Floors(t *testing.T) {
	cases := []struct {
		amount, tax, total int64
	}{
		{999, 99, 1098},
		{1000, 100, 1100},
		{9, 0, 9},
		{0, 0, 0},
	}
	for _, tc := range cases {
		tax, total := invoice.CalculateTax(decimal.NewFromInt(tc.amount), invoice.DefaultTaxRate)
		assert.True(t, decimal.NewFromInt(tc.tax).Equal(tax), "tax of %d: %s", tc.amount, tax)
		assert.True(t, decimal.NewFromInt(tc.total).Equal(total), "total of %d: %s", tc.amount, total)
	}
}

func TestSummarizeUnbilled_GroupsByCohort(t *testing.T) {
	repo := newMemoryRepo()
	p20, p31 := id.New(), id.New()
	repo.closingDates[p20] = 20
	repo.closingDates[p31] = 31
	repo.ship(p31, may1, 100)
	repo.ship(p31, may31, 50)
	repo.ship(p31, may31.AddDate(0, 0, 1), 70)
	repo.ship(p20, may1, 999)

	rows, err := newService(repo).SummarizeUnbilled(userCtx(), 31, may1, may31)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, p31, rows[0].PartnerID)
	assert.Equal(t, 2, rows[0].ShipmentCount)
	assert.True(t, decimal.NewFromInt(150).Equal(rows[0].TotalExclTax))
}

func TestSummarizeUnbilled_RejectsBadInput(t *testing.T) {
	svc := newService(newMemoryRepo())

	_, err := svc.SummarizeUnbilled(userCtx(), 0, may1, may31)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.SummarizeUnbilled(userCtx(), 31, may31, may1)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestConfirm_ClaimsAndComputesTax(t *testing.T) {
	repo := newMemoryRepo()
	partner := id.New()
	s1 := repo.ship(partner, may1, 500)
	s2 := repo.ship(partner, may31, 499)
	outside := repo.ship(partner, may31.AddDate(0, 0, 1), 10)

	res, err := newService(repo).Confirm(userCtx(), invoice.ConfirmInput{
		PartnerID:    partner,
		PeriodStart:  may1,
		PeriodEnd:    may31,
		TotalExclTax: decimal.NewFromInt(999),
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-2024-00001", res.Number)
	assert.True(t, decimal.NewFromInt(999).Equal(res.Subtotal))
	assert.True(t, decimal.NewFromInt(99).Equal(res.Tax))
	assert.True(t, decimal.NewFromInt(1098).Equal(res.Total))
	assert.Equal(t, 2, res.ClaimedShipments)
	assert.False(t, res.CallerTotalMismatch)

	assert.Equal(t, &res.InvoiceID, repo.invoiceOf(s1))
	assert.Equal(t, &res.InvoiceID, repo.invoiceOf(s2))
	assert.Nil(t, repo.invoiceOf(outside))

	inv := repo.invoices[res.InvoiceID]
	assert.Equal(t, invoice.StatusConfirmed, inv.Status)
	assert.Equal(t, "user-1", inv.CreatedBy)
}

func TestConfirm_RecomputesWhenShipmentLandsAfterSummary(t *testing.T) {
	repo := newMemoryRepo()
	partner := id.New()
	repo.closingDates[partner] = 31
	repo.ship(partner, may1, 300)
	svc := newService(repo)

	rows, err := svc.SummarizeUnbilled(userCtx(), 31, may1, may31)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	late := repo.ship(partner, may31, 200)

	res, err := svc.Confirm(userCtx(), invoice.ConfirmInput{
		PartnerID:    partner,
		PeriodStart:  may1,
		PeriodEnd:    may31,
		TotalExclTax: rows[0].TotalExclTax,
	})
	require.NoError(t, err)

	assert.True(t, res.CallerTotalMismatch)
	assert.True(t, decimal.NewFromInt(500).Equal(res.Subtotal))
	assert.Equal(t, &res.InvoiceID, repo.invoiceOf(late))
}

func TestConfirm_ClaimsOnlyLockedSet(t *testing.T) {
	repo := newMemoryRepo()
	partner := id.New()
	repo.ship(partner, may1, 300)
	var late id.ID
	repo.afterLock = func() { late = repo.ship(partner, may31, 200) }

	res, err := newService(repo).Confirm(userCtx(), invoice.ConfirmInput{
		PartnerID:   partner,
		PeriodStart: may1,
		PeriodEnd:   may31,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.ClaimedShipments)
	assert.True(t, decimal.NewFromInt(300).Equal(res.Subtotal))
	assert.Nil(t, repo.invoiceOf(late))
}

func TestConfirm_NothingToInvoice(t *testing.T) {
	repo := newMemoryRepo()
	partner := id.New()
	repo.ship(partner, may1, 100)
	svc := newService(repo)

	_, err := svc.Confirm(userCtx(), invoice.ConfirmInput{PartnerID: partner, PeriodStart: may1, PeriodEnd: may31})
	require.NoError(t, err)

	_, err = svc.Confirm(userCtx(), invoice.ConfirmInput{PartnerID: partner, PeriodStart: may1, PeriodEnd: may31})
	assert.True(t, apperror.HasCode(err, apperror.CodeNothingToInvoice))
	assert.Len(t, repo.invoices, 1)
}

func TestConfirm_RequiresActor(t *testing.T) {
	_, err := newService(newMemoryRepo()).Confirm(context.Background(), invoice.ConfirmInput{PartnerID: id.New(), PeriodStart: may1, PeriodEnd: may31})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthenticated))
}
