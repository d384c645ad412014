// Package shipment_repo provides the PostgreSQL implementation of shipment
// headers and their line items.
package shipment_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/shipment"
	"ledgerbook/internal/infrastructure/storage/postgres"
)

const (
	shipmentsTable = "shipments"
	itemsTable     = "shipment_items"
)

var (
	shipmentCols = postgres.ExtractDBColumns[shipment.Shipment]()
	itemCols     = postgres.ExtractDBColumns[shipment.Item]()
)

// ShipmentRepo implements shipment.Repository.
type ShipmentRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ shipment.Repository = (*ShipmentRepo)(nil)

// NewShipmentRepo creates a new shipment repository.
func NewShipmentRepo(txm *postgres.TxManager) *ShipmentRepo {
	return &ShipmentRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ShipmentRepo) ResolveOwners(ctx context.Context, productIDs []id.ID) ([]shipment.ProductOwner, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	sql, args, err := r.ownersQuery(productIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var owners []shipment.ProductOwner
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &owners, sql, args...); err != nil {
		return nil, fmt.Errorf("resolve owners: %w", err)
	}
	return owners, nil
}

func (r *ShipmentRepo) ownersQuery(productIDs []id.ID) squirrel.SelectBuilder {
	return r.builder.
		Select(
			"p.id AS product_id",
			"p.name AS product_name",
			"pt.id AS partner_id",
			"pt.name AS partner_name",
		).
		From("products p").
		LeftJoin("partners pt ON pt.id = p.partner_id").
		Where(squirrel.Eq{"p.id": productIDs})
}

// partnerDayKey is the advisory lock key of one partner's delivery note for a
// day.
func partnerDayKey(partnerID id.ID, date time.Time) string {
	return "shipment:" + partnerID.String() + ":" + date.Format(time.DateOnly)
}

// LockPartnerDay takes a transaction-scoped advisory lock so that two
// registrations for the same partner and day cannot both create a header.
func (r *ShipmentRepo) LockPartnerDay(ctx context.Context, partnerID id.ID, date time.Time) error {
	if r.txm.GetTx(ctx) == nil {
		return fmt.Errorf("lock partner day requires transaction context")
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx,
		"SELECT pg_advisory_xact_lock(hashtext($1))", partnerDayKey(partnerID, date)); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func (r *ShipmentRepo) FindOpenForUpdate(ctx context.Context, partnerID id.ID, date time.Time) (*shipment.Shipment, error) {
	sql, args, err := r.openHeaderQuery(partnerID, date).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s shipment.Shipment
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("shipment", partnerDayKey(partnerID, date))
		}
		return nil, fmt.Errorf("find shipment: %w", err)
	}
	return &s, nil
}

// openHeaderQuery skips headers an invoice has claimed; lines added there
// would never be billed.
func (r *ShipmentRepo) openHeaderQuery(partnerID id.ID, date time.Time) squirrel.SelectBuilder {
	return r.builder.
		Select(shipmentCols...).
		From(shipmentsTable).
		Where(squirrel.Eq{
			"partner_id":    partnerID,
			"shipment_date": date,
			"status":        shipment.StatusConfirmed,
			"invoice_id":    nil,
		}).
		OrderBy("created_at").
		Limit(1).
		Suffix("FOR UPDATE")
}

func (r *ShipmentRepo) Create(ctx context.Context, s *shipment.Shipment) error {
	sql, args, err := r.builder.
		Insert(shipmentsTable).
		SetMap(postgres.StructToMap(s)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

func (r *ShipmentRepo) AddItem(ctx context.Context, item *shipment.Item) error {
	sql, args, err := r.builder.
		Insert(itemsTable).
		SetMap(postgres.StructToMap(item)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert shipment item: %w", err)
	}
	return nil
}

func (r *ShipmentRepo) SetTotal(ctx context.Context, shipmentID id.ID, total decimal.Decimal) error {
	sql, args, err := r.builder.
		Update(shipmentsTable).
		Set("total_amount", total).
		Where(squirrel.Eq{"id": shipmentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update shipment total: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("shipment", shipmentID)
	}
	return nil
}

func (r *ShipmentRepo) GetForUpdate(ctx context.Context, shipmentID id.ID) (*shipment.Shipment, error) {
	return r.get(ctx, shipmentID, "FOR UPDATE")
}

func (r *ShipmentRepo) Get(ctx context.Context, shipmentID id.ID) (*shipment.Shipment, error) {
	return r.get(ctx, shipmentID, "")
}

func (r *ShipmentRepo) get(ctx context.Context, shipmentID id.ID, suffix string) (*shipment.Shipment, error) {
	q := r.builder.
		Select(shipmentCols...).
		From(shipmentsTable).
		Where(squirrel.Eq{"id": shipmentID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	var s shipment.Shipment
	if err := pgxscan.Get(ctx, querier, &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("shipment", shipmentID)
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}

	itemsSQL, itemsArgs, err := r.builder.
		Select(itemCols...).
		From(itemsTable).
		Where(squirrel.Eq{"shipment_id": shipmentID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &s.Items, itemsSQL, itemsArgs...); err != nil {
		return nil, fmt.Errorf("get shipment items: %w", err)
	}
	return &s, nil
}

// Delete removes the header; shipment_items cascade.
func (r *ShipmentRepo) Delete(ctx context.Context, shipmentID id.ID) error {
	sql, args, err := r.builder.
		Delete(shipmentsTable).
		Where(squirrel.Eq{"id": shipmentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete shipment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("shipment", shipmentID)
	}
	return nil
}

func (r *ShipmentRepo) List(ctx context.Context, f shipment.ListFilter) ([]shipment.Shipment, error) {
	sql, args, err := r.listQuery(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []shipment.Shipment
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	return items, nil
}

func (r *ShipmentRepo) listQuery(f shipment.ListFilter) squirrel.SelectBuilder {
	q := r.builder.Select(shipmentCols...).From(shipmentsTable)
	if f.PartnerID != nil {
		q = q.Where(squirrel.Eq{"partner_id": *f.PartnerID})
	}
	if f.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"shipment_date": *f.FromDate})
	}
	if f.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"shipment_date": *f.ToDate})
	}
	if f.Unbilled {
		q = q.Where(squirrel.Eq{"invoice_id": nil})
	}
	q = q.OrderBy("shipment_date DESC", "number DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return q
}
