// Package report_repo provides PostgreSQL implementations for report repositories.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgerbook/internal/domain/ledger"
	"ledgerbook/internal/domain/reports"
	"ledgerbook/internal/infrastructure/storage/postgres"
	"ledgerbook/internal/infrastructure/storage/postgres/ledger_repo"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ reports.Repository = (*ReportRepo)(nil)

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// StockBalances returns products with their counters and the total row
// count before pagination.
func (r *ReportRepo) StockBalances(ctx context.Context, filter reports.StockBalanceFilter) ([]reports.StockBalanceRow, int, error) {
	q := r.stockBalanceQuery(filter)
	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stock balances: %w", err)
	}

	q = q.OrderBy("p.name", "p.code").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.StockBalanceRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("stock balances: %w", err)
	}
	return rows, total, nil
}

func (r *ReportRepo) stockBalanceQuery(filter reports.StockBalanceFilter) squirrel.SelectBuilder {
	q := r.builder.
		Select(
			"p.id AS product_id",
			"p.code AS product_code",
			"p.name AS product_name",
			"p.unit",
			"pt.id AS partner_id",
			"pt.name AS partner_name",
			"i.raw",
			"i.finished",
			"i.defective",
			"i.last_updated_at",
		).
		From("products p").
		Join("inventory i ON i.product_id = p.id").
		LeftJoin("partners pt ON pt.id = p.partner_id").
		Where(squirrel.Eq{"p.deletion_mark": false})

	if filter.PartnerID != nil {
		q = q.Where(squirrel.Eq{"p.partner_id": *filter.PartnerID})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"p.name": pattern},
			squirrel.ILike{"p.code": pattern},
		})
	}
	if filter.ExcludeZero {
		q = q.Where("(i.raw <> 0 OR i.finished <> 0 OR i.defective <> 0)")
	}
	return q
}

// MovementHistory returns ledger entries joined with product names.
func (r *ReportRepo) MovementHistory(ctx context.Context, filter reports.MovementHistoryFilter) ([]reports.MovementHistoryRow, error) {
	sql, args, err := r.movementHistoryQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.MovementHistoryRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("movement history: %w", err)
	}
	return rows, nil
}

func (r *ReportRepo) movementHistoryQuery(filter reports.MovementHistoryFilter) squirrel.SelectBuilder {
	cols := make([]string, 0, len(movementCols)+1)
	for _, c := range movementCols {
		cols = append(cols, "m."+c)
	}
	cols = append(cols, "p.name AS product_name")

	q := r.builder.
		Select(cols...).
		From("inventory_movements m").
		Join("products p ON p.id = m.product_id")
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"m.product_id": *filter.ProductID})
	}
	if len(filter.Kinds) > 0 {
		q = q.Where(squirrel.Eq{"m.movement_type": filter.Kinds})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"m.created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"m.created_at": *filter.ToDate})
	}
	return q.OrderBy("m.created_at DESC", "m.id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))
}

var movementCols = postgres.ExtractDBColumns[ledger.Movement]()

// ShipmentHistory returns shipment headers with partner, item count and
// invoice number.
func (r *ReportRepo) ShipmentHistory(ctx context.Context, filter reports.ShipmentHistoryFilter) ([]reports.ShipmentHistoryRow, error) {
	sql, args, err := r.shipmentHistoryQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.ShipmentHistoryRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("shipment history: %w", err)
	}
	return rows, nil
}

func (r *ReportRepo) shipmentHistoryQuery(filter reports.ShipmentHistoryFilter) squirrel.SelectBuilder {
	q := r.builder.
		Select(
			"s.id AS shipment_id",
			"s.number",
			"s.shipment_date",
			"s.partner_id",
			"pt.name AS partner_name",
			"(SELECT COUNT(*) FROM shipment_items si WHERE si.shipment_id = s.id) AS item_count",
			"s.total_amount",
			"s.invoice_id",
			"inv.number AS invoice_number",
		).
		From("shipments s").
		Join("partners pt ON pt.id = s.partner_id").
		LeftJoin("invoices inv ON inv.id = s.invoice_id")

	if filter.PartnerID != nil {
		q = q.Where(squirrel.Eq{"s.partner_id": *filter.PartnerID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"s.shipment_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"s.shipment_date": *filter.ToDate})
	}
	if filter.Unbilled != nil {
		if *filter.Unbilled {
			q = q.Where(squirrel.Eq{"s.invoice_id": nil})
		} else {
			q = q.Where(squirrel.NotEq{"s.invoice_id": nil})
		}
	}
	return q.OrderBy("s.shipment_date DESC", "s.number DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))
}

// Dashboard aggregates headline figures in one round trip.
func (r *ReportRepo) Dashboard(ctx context.Context, monthStart, dayStart time.Time) (*reports.Dashboard, error) {
	sql, args, err := r.dashboardQuery(monthStart, dayStart).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var d reports.Dashboard
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &d, sql, args...); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return &d, nil
}

func (r *ReportRepo) dashboardQuery(monthStart, dayStart time.Time) squirrel.SelectBuilder {
	return r.builder.Select(
		"(SELECT COUNT(*) FROM products WHERE deletion_mark = false) AS product_count",
		"COALESCE((SELECT SUM(raw) FROM inventory), 0) AS total_raw",
		"COALESCE((SELECT SUM(finished) FROM inventory), 0) AS total_finished",
		"COALESCE((SELECT SUM(defective) FROM inventory), 0) AS total_defective",
		"(SELECT COUNT(*) FROM shipments WHERE invoice_id IS NULL) AS unbilled_shipments",
		"COALESCE((SELECT SUM(total_amount) FROM shipments WHERE invoice_id IS NULL), 0) AS unbilled_amount",
	).
		Column(squirrel.Expr("(SELECT COUNT(*) FROM shipments WHERE shipment_date >= ?) AS shipments_this_month", monthStart)).
		Column(squirrel.Expr("COALESCE((SELECT SUM(total_amount) FROM shipments WHERE shipment_date >= ?), 0) AS shipped_amount_this_month", monthStart)).
		Column(squirrel.Expr("(SELECT COUNT(*) FROM inventory_movements WHERE created_at >= ?) AS movements_today", dayStart))
}

// CompareCounters puts every product's stored counters next to the sums of
// its live ledger entries.
func (r *ReportRepo) CompareCounters(ctx context.Context) ([]reports.CounterComparison, error) {
	sql, args, err := r.compareQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.CounterComparison
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("compare counters: %w", err)
	}
	return rows, nil
}

func (r *ReportRepo) compareQuery() squirrel.SelectBuilder {
	sums := r.builder.
		Select(
			"m.product_id",
			ledger_repo.SumExpr("m", ledger.CounterRaw)+" AS raw",
			ledger_repo.SumExpr("m", ledger.CounterFinished)+" AS finished",
			ledger_repo.SumExpr("m", ledger.CounterDefective)+" AS defective",
		).
		From("inventory_movements m").
		GroupBy("m.product_id")

	return r.builder.
		Select(
			"i.product_id",
			"p.name AS product_name",
			"i.raw AS stored_raw",
			"i.finished AS stored_finished",
			"i.defective AS stored_defective",
			"COALESCE(s.raw, 0) AS ledger_raw",
			"COALESCE(s.finished, 0) AS ledger_finished",
			"COALESCE(s.defective, 0) AS ledger_defective",
		).
		From("inventory i").
		Join("products p ON p.id = i.product_id").
		JoinClause(sums.Prefix("LEFT JOIN (").Suffix(") s ON s.product_id = i.product_id")).
		OrderBy("p.name")
}
