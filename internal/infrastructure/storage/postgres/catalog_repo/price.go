package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/catalogs/price"
	"ledgerbook/internal/infrastructure/storage/postgres"
)

const pricesTable = "prices"

var priceCols = postgres.ExtractDBColumns[price.Price]()

// PriceRepo implements price.Repository.
type PriceRepo struct {
	txm *postgres.TxManager
}

var _ price.Repository = (*PriceRepo)(nil)

// NewPriceRepo creates a new price repository.
func NewPriceRepo(txm *postgres.TxManager) *PriceRepo {
	return &PriceRepo{txm: txm}
}

func (r *PriceRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *PriceRepo) Create(ctx context.Context, p *price.Price) error {
	sql, args, err := r.builder().
		Insert(pricesTable).
		SetMap(postgres.StructToMap(p)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert price: %w", err)
	}
	return nil
}

func (r *PriceRepo) ListByProduct(ctx context.Context, productID id.ID) ([]price.Price, error) {
	sql, args, err := r.builder().
		Select(priceCols...).
		From(pricesTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("valid_from DESC", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []price.Price
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	return items, nil
}

func (r *PriceRepo) SetStatus(ctx context.Context, priceID id.ID, status price.Status) error {
	sql, args, err := r.builder().
		Update(pricesTable).
		Set("status", status).
		Where(squirrel.Eq{"id": priceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update price status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("price", priceID)
	}
	return nil
}

// FindActive picks the active price with the latest valid_from on or before
// date.
func (r *PriceRepo) FindActive(ctx context.Context, productID id.ID, date time.Time) (price.Price, error) {
	sql, args, err := r.findActiveQuery(productID, date).ToSql()
	if err != nil {
		return price.Price{}, fmt.Errorf("build query: %w", err)
	}

	var p price.Price
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return price.Price{}, apperror.NewNotFound("price", productID)
		}
		return price.Price{}, fmt.Errorf("find active price: %w", err)
	}
	return p, nil
}

func (r *PriceRepo) findActiveQuery(productID id.ID, date time.Time) squirrel.SelectBuilder {
	return r.builder().
		Select(priceCols...).
		From(pricesTable).
		Where(squirrel.Eq{"product_id": productID, "status": price.StatusActive}).
		Where(squirrel.LtOrEq{"valid_from": date}).
		OrderBy("valid_from DESC", "created_at DESC").
		Limit(1)
}
