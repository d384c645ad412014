package partner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/numerator"
	"ledgerbook/internal/core/tx"
	"ledgerbook/internal/domain"
)

type memoryRepo struct {
	rows map[id.ID]*Partner
}

func (r *memoryRepo) Create(_ context.Context, p *Partner) error {
	r.rows[p.ID] = p
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, partnerID id.ID) (*Partner, error) {
	p, ok := r.rows[partnerID]
	if !ok {
		return nil, apperror.NewNotFound("partner", partnerID)
	}
	return p, nil
}

func (r *memoryRepo) Update(_ context.Context, p *Partner) error {
	r.rows[p.ID] = p
	return nil
}

func (r *memoryRepo) SetDeletionMark(_ context.Context, partnerID id.ID, marked bool) error {
	r.rows[partnerID].DeletionMark = marked
	return nil
}

func (r *memoryRepo) List(context.Context, domain.ListFilter) (domain.ListResult[*Partner], error) {
	return domain.ListResult[*Partner]{}, nil
}

func TestCreate_AssignsCode(t *testing.T) {
	repo := &memoryRepo{rows: map[id.ID]*Partner{}}
	svc := NewService(repo, tx.Passthrough{}, &numerator.StaticGenerator{})

	p := NewPartner("", "Acme Trading")
	require.NoError(t, svc.Create(context.Background(), p))

	assert.Regexp(t, `^PT-00001$`, p.Code)
}

func TestValidate_ClosingDate(t *testing.T) {
	p := NewPartner("PT-1", "Acme Trading")
	p.ClosingDate = 0

	err := p.Validate(context.Background())

	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestGetByID_NotFoundNamesEntity(t *testing.T) {
	svc := NewService(&memoryRepo{rows: map[id.ID]*Partner{}}, tx.Passthrough{}, &numerator.StaticGenerator{})

	_, err := svc.GetByID(context.Background(), id.New())

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "partner not found", appErr.Message)
}
