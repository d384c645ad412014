package product

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/tx"
	"ledgerbook/internal/domain"
)

type memoryRepo struct {
	rows map[id.ID]*Product
}

func (r *memoryRepo) Create(_ context.Context, p *Product) error {
	r.rows[p.ID] = p
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, productID id.ID) (*Product, error) {
	p, ok := r.rows[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return p, nil
}

func (r *memoryRepo) Update(_ context.Context, p *Product) error {
	r.rows[p.ID] = p
	return nil
}

func (r *memoryRepo) SetDeletionMark(_ context.Context, productID id.ID, marked bool) error {
	r.rows[productID].DeletionMark = marked
	return nil
}

func (r *memoryRepo) List(context.Context, domain.ListFilter) (domain.ListResult[*Product], error) {
	var res domain.ListResult[*Product]
	for _, p := range r.rows {
		res.Items = append(res.Items, p)
	}
	res.TotalCount = int64(len(res.Items))
	return res, nil
}

type partnerSet map[id.ID]bool

func (s partnerSet) PartnerExists(_ context.Context, partnerID id.ID) (bool, error) {
	return s[partnerID], nil
}

type counterInit struct {
	created []id.ID
	err     error
}

func (c *counterInit) InitCounters(_ context.Context, productID id.ID) error {
	if c.err != nil {
		return c.err
	}
	c.created = append(c.created, productID)
	return nil
}

func TestCreate_InitializesCounters(t *testing.T) {
	partnerID := id.New()
	repo := &memoryRepo{rows: map[id.ID]*Product{}}
	counters := &counterInit{}
	svc := NewService(repo, tx.Passthrough{}, partnerSet{partnerID: true}, counters)

	p := NewProduct("P-001", "Bracket", &partnerID)
	require.NoError(t, svc.Create(context.Background(), p))

	assert.Equal(t, []id.ID{p.ID}, counters.created)
}

func TestCreate_UnknownPartner(t *testing.T) {
	repo := &memoryRepo{rows: map[id.ID]*Product{}}
	counters := &counterInit{}
	svc := NewService(repo, tx.Passthrough{}, partnerSet{}, counters)
	missing := id.New()

	err := svc.Create(context.Background(), NewProduct("P-001", "Bracket", &missing))

	assert.True(t, apperror.IsNotFound(err))
	assert.Empty(t, repo.rows)
	assert.Empty(t, counters.created)
}

func TestCreate_CounterFailureIsStoreFailure(t *testing.T) {
	repo := &memoryRepo{rows: map[id.ID]*Product{}}
	svc := NewService(repo, tx.Passthrough{}, partnerSet{}, &counterInit{err: errors.New("inventory insert failed")})

	err := svc.Create(context.Background(), NewProduct("P-001", "Bracket", nil))

	assert.True(t, apperror.HasCode(err, apperror.CodeStoreFailure))
}

func TestCreate_Validation(t *testing.T) {
	repo := &memoryRepo{rows: map[id.ID]*Product{}}
	svc := NewService(repo, tx.Passthrough{}, partnerSet{}, &counterInit{})

	err := svc.Create(context.Background(), NewProduct("", "Bracket", nil))

	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestDelete_SetsDeletionMark(t *testing.T) {
	repo := &memoryRepo{rows: map[id.ID]*Product{}}
	svc := NewService(repo, tx.Passthrough{}, partnerSet{}, &counterInit{})
	p := NewProduct("P-001", "Bracket", nil)
	require.NoError(t, svc.Create(context.Background(), p))

	require.NoError(t, svc.Delete(context.Background(), p.ID))

	assert.True(t, repo.rows[p.ID].DeletionMark)
}
