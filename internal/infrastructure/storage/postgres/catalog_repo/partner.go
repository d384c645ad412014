package catalog_repo

import (
	"context"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/catalogs/partner"
	"ledgerbook/internal/infrastructure/storage/postgres"
)

// PartnerRepo implements partner.Repository.
type PartnerRepo struct {
	*BaseCatalogRepo[*partner.Partner]
}

var _ partner.Repository = (*PartnerRepo)(nil)

// NewPartnerRepo creates a new partner repository.
func NewPartnerRepo(txm *postgres.TxManager) *PartnerRepo {
	return &PartnerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			"partners",
			postgres.ExtractDBColumns[partner.Partner](),
			func() *partner.Partner { return &partner.Partner{} },
		),
	}
}

// PartnerExists reports whether a live partner exists.
func (r *PartnerRepo) PartnerExists(ctx context.Context, partnerID id.ID) (bool, error) {
	return r.Exists(ctx, partnerID)
}
