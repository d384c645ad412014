package catalog_repo

import (
	"context"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/catalogs/product"
	"ledgerbook/internal/infrastructure/storage/postgres"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

var _ product.Repository = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			"products",
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
		),
	}
}

// ProductExists reports whether a live product exists.
func (r *ProductRepo) ProductExists(ctx context.Context, productID id.ID) (bool, error) {
	return r.Exists(ctx, productID)
}
