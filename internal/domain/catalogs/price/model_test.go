package price

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func history(productID id.ID) []Price {
	return []Price{
		{ID: id.New(), ProductID: productID, UnitPrice: decimal.NewFromInt(100), ValidFrom: date(2024, 1, 1), Status: StatusActive},
		{ID: id.New(), ProductID: productID, UnitPrice: decimal.NewFromInt(120), ValidFrom: date(2024, 6, 1), Status: StatusActive},
		{ID: id.New(), ProductID: productID, UnitPrice: decimal.NewFromInt(999), ValidFrom: date(2024, 5, 1), Status: StatusInactive},
	}
}

func TestActiveOn(t *testing.T) {
	h := history(id.New())

	cases := []struct {
		on    time.Time
		want  int64
		found bool
	}{
		{date(2024, 3, 1), 100, true},
		{date(2024, 7, 1), 120, true},
		{date(2024, 6, 1), 120, true},
		{date(2024, 5, 15), 100, true},
		{date(2023, 12, 1), 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.on.Format(time.DateOnly), func(t *testing.T) {
			p, ok := ActiveOn(h, tc.on)
			assert.Equal(t, tc.found, ok)
			if ok {
				assert.True(t, decimal.NewFromInt(tc.want).Equal(p.UnitPrice), "got %s", p.UnitPrice)
			}
		})
	}
}

type memoryRepo struct {
	rows []Price
}

func (r *memoryRepo) Create(_ context.Context, p *Price) error {
	r.rows = append(r.rows, *p)
	return nil
}

func (r *memoryRepo) ListByProduct(_ context.Context, productID id.ID) ([]Price, error) {
	var out []Price
	for _, p := range r.rows {
		if p.ProductID == productID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) SetStatus(_ context.Context, priceID id.ID, status Status) error {
	for i := range r.rows {
		if r.rows[i].ID == priceID {
			r.rows[i].Status = status
			return nil
		}
	}
	return apperror.NewNotFound("price", priceID)
}

func (r *memoryRepo) FindActive(ctx context.Context, productID id.ID, on time.Time) (Price, error) {
	rows, _ := r.ListByProduct(ctx, productID)
	p, ok := ActiveOn(rows, on)
	if !ok {
		return Price{}, apperror.NewNotFound("price", productID)
	}
	return p, nil
}

type knownProducts map[id.ID]bool

func (k knownProducts) ProductExists(_ context.Context, productID id.ID) (bool, error) {
	return k[productID], nil
}

func TestService_UnitPriceOn(t *testing.T) {
	productID := id.New()
	repo := &memoryRepo{rows: history(productID)}
	svc := NewService(repo, knownProducts{productID: true})
	ctx := context.Background()

	got, err := svc.UnitPriceOn(ctx, productID, date(2024, 3, 1))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(got))

	got, err = svc.UnitPriceOn(ctx, productID, date(2023, 12, 1))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestService_Create(t *testing.T) {
	productID := id.New()
	repo := &memoryRepo{}
	svc := NewService(repo, knownProducts{productID: true})
	ctx := context.Background()

	t.Run("defaults to active", func(t *testing.T) {
		p := &Price{ProductID: productID, UnitPrice: decimal.NewFromInt(50), ValidFrom: date(2024, 1, 1)}
		require.NoError(t, svc.Create(ctx, p))
		assert.Equal(t, StatusActive, p.Status)
		assert.False(t, id.IsNil(p.ID))
	})

	t.Run("negative price", func(t *testing.T) {
		p := &Price{ProductID: productID, UnitPrice: decimal.NewFromInt(-1), ValidFrom: date(2024, 1, 1)}
		err := svc.Create(ctx, p)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("unknown product", func(t *testing.T) {
		p := &Price{ProductID: id.New(), UnitPrice: decimal.NewFromInt(1), ValidFrom: date(2024, 1, 1)}
		err := svc.Create(ctx, p)
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestService_Deactivate(t *testing.T) {
	productID := id.New()
	repo := &memoryRepo{rows: history(productID)}
	svc := NewService(repo, knownProducts{productID: true})
	ctx := context.Background()

	require.NoError(t, svc.Deactivate(ctx, repo.rows[1].ID))

	got, err := svc.UnitPriceOn(ctx, productID, date(2024, 7, 1))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(got))
}
