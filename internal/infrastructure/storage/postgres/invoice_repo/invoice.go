// Package invoice_repo provides the PostgreSQL implementation of invoices.
package invoice_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/invoice"
	"ledgerbook/internal/domain/shipment"
	"ledgerbook/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable  = "invoices"
	shipmentsTable = "shipments"
)

var (
	invoiceCols = postgres.ExtractDBColumns[invoice.Invoice]()
	refCols     = postgres.ExtractDBColumns[invoice.ShipmentRef]()
)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ invoice.Repository = (*InvoiceRepo)(nil)

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txm *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *InvoiceRepo) SummarizeUnbilled(ctx context.Context, closingDate int, start, end time.Time) ([]invoice.PartnerSummary, error) {
	sql, args, err := r.summaryQuery(closingDate, start, end).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []invoice.PartnerSummary
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("summarize unbilled: %w", err)
	}
	return rows, nil
}

func (r *InvoiceRepo) summaryQuery(closingDate int, start, end time.Time) squirrel.SelectBuilder {
	return r.builder.
		Select(
			"s.partner_id",
			"pt.name AS partner_name",
			"pt.closing_date",
			"COUNT(*) AS shipment_count",
			"COALESCE(SUM(s.total_amount), 0) AS total_excl_tax",
		).
		From(shipmentsTable+" s").
		Join("partners pt ON pt.id = s.partner_id").
		Where(squirrel.Eq{"s.invoice_id": nil}).
		Where(squirrel.Eq{"s.status": shipment.StatusConfirmed}).
		Where(squirrel.Eq{"pt.closing_date": closingDate}).
		Where(squirrel.GtOrEq{"s.shipment_date": start}).
		Where(squirrel.LtOrEq{"s.shipment_date": end}).
		GroupBy("s.partner_id", "pt.name", "pt.closing_date").
		OrderBy("pt.name")
}

func (r *InvoiceRepo) LockUnbilled(ctx context.Context, partnerID id.ID, start, end time.Time) ([]invoice.ShipmentRef, error) {
	sql, args, err := r.lockQuery(partnerID, start, end).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var refs []invoice.ShipmentRef
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &refs, sql, args...); err != nil {
		return nil, fmt.Errorf("lock unbilled: %w", err)
	}
	return refs, nil
}

func (r *InvoiceRepo) lockQuery(partnerID id.ID, start, end time.Time) squirrel.SelectBuilder {
	return r.builder.
		Select(refCols...).
		From(shipmentsTable).
		Where(squirrel.Eq{"partner_id": partnerID}).
		Where(squirrel.Eq{"invoice_id": nil}).
		Where(squirrel.Eq{"status": shipment.StatusConfirmed}).
		Where(squirrel.GtOrEq{"shipment_date": start}).
		Where(squirrel.LtOrEq{"shipment_date": end}).
		OrderBy("shipment_date", "number").
		Suffix("FOR UPDATE")
}

func (r *InvoiceRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	sql, args, err := r.builder.
		Insert(invoicesTable).
		SetMap(postgres.StructToMap(inv)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// ClaimShipments only touches rows that are still unbilled.
func (r *InvoiceRepo) ClaimShipments(ctx context.Context, invoiceID id.ID, shipmentIDs []id.ID) (int64, error) {
	if len(shipmentIDs) == 0 {
		return 0, nil
	}
	sql, args, err := r.claimQuery(invoiceID, shipmentIDs).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("claim shipments: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *InvoiceRepo) claimQuery(invoiceID id.ID, shipmentIDs []id.ID) squirrel.UpdateBuilder {
	return r.builder.
		Update(shipmentsTable).
		Set("invoice_id", invoiceID).
		Where(squirrel.Eq{"id": shipmentIDs}).
		Where(squirrel.Eq{"invoice_id": nil})
}

func (r *InvoiceRepo) Get(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	sql, args, err := r.builder.
		Select(invoiceCols...).
		From(invoicesTable).
		Where(squirrel.Eq{"id": invoiceID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	var inv invoice.Invoice
	if err := pgxscan.Get(ctx, querier, &inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("invoice", invoiceID)
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	refsSQL, refsArgs, err := r.builder.
		Select(refCols...).
		From(shipmentsTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("shipment_date", "number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build shipments query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &inv.Shipments, refsSQL, refsArgs...); err != nil {
		return nil, fmt.Errorf("get invoice shipments: %w", err)
	}
	return &inv, nil
}

func (r *InvoiceRepo) List(ctx context.Context, f invoice.ListFilter) ([]invoice.Invoice, error) {
	q := r.builder.Select(invoiceCols...).From(invoicesTable)
	if f.PartnerID != nil {
		q = q.Where(squirrel.Eq{"partner_id": *f.PartnerID})
	}
	if f.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"issue_date": *f.FromDate})
	}
	if f.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"issue_date": *f.ToDate})
	}
	q = q.OrderBy("issue_date DESC", "number DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []invoice.Invoice
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return items, nil
}
