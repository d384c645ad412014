// Package ledger_repo provides the PostgreSQL implementation of the movement
// ledger and its inventory counters.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/ledger"
	"ledgerbook/internal/infrastructure/storage/postgres"
)

const (
	inventoryTable = "inventory"
	movementsTable = "inventory_movements"
)

var (
	movementCols = postgres.ExtractDBColumns[ledger.Movement]()
	counterCols  = postgres.ExtractDBColumns[ledger.Counters]()
)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ ledger.Repository = (*LedgerRepo)(nil)

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// counterColumn maps a counter to its inventory column.
func counterColumn(c ledger.Counter) (string, error) {
	switch c {
	case ledger.CounterRaw, ledger.CounterFinished, ledger.CounterDefective:
		return string(c), nil
	}
	return "", fmt.Errorf("unknown counter %q", c)
}

// ApplyDeltas increments counters in place; there is no read-modify-write.
func (r *LedgerRepo) ApplyDeltas(ctx context.Context, productID id.ID, deltas []ledger.Delta) error {
	q, err := r.applyDeltasQuery(productID, deltas)
	if err != nil {
		return err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("apply deltas: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("inventory", productID)
	}
	return nil
}

func (r *LedgerRepo) applyDeltasQuery(productID id.ID, deltas []ledger.Delta) (squirrel.UpdateBuilder, error) {
	q := r.builder.Update(inventoryTable)
	for _, d := range deltas {
		col, err := counterColumn(d.Counter)
		if err != nil {
			return q, err
		}
		q = q.Set(col, squirrel.Expr(col+" + ?", d.Amount))
	}
	return q.
		Set("last_updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"product_id": productID}), nil
}

func (r *LedgerRepo) GetCounters(ctx context.Context, productID id.ID) (ledger.Counters, error) {
	return r.getCounters(ctx, productID, "")
}

// GetCountersForUpdate locks the inventory row until the transaction ends.
func (r *LedgerRepo) GetCountersForUpdate(ctx context.Context, productID id.ID) (ledger.Counters, error) {
	return r.getCounters(ctx, productID, "FOR UPDATE")
}

func (r *LedgerRepo) getCounters(ctx context.Context, productID id.ID, suffix string) (ledger.Counters, error) {
	q := r.builder.
		Select(counterCols...).
		From(inventoryTable).
		Where(squirrel.Eq{"product_id": productID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return ledger.Counters{}, fmt.Errorf("build query: %w", err)
	}

	var c ledger.Counters
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.Counters{}, apperror.NewNotFound("inventory", productID)
		}
		return ledger.Counters{}, fmt.Errorf("get counters: %w", err)
	}
	return c, nil
}

// SetCounters writes absolute values.
func (r *LedgerRepo) SetCounters(ctx context.Context, c ledger.Counters) error {
	sql, args, err := r.builder.
		Update(inventoryTable).
		Set("raw", c.Raw).
		Set("finished", c.Finished).
		Set("defective", c.Defective).
		Set("last_updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"product_id": c.ProductID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set counters: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("inventory", c.ProductID)
	}
	return nil
}

// InitCounters creates the zero inventory row of a new product.
func (r *LedgerRepo) InitCounters(ctx context.Context, productID id.ID) error {
	sql, args, err := r.builder.
		Insert(inventoryTable).
		Columns("product_id", "raw", "finished", "defective", "last_updated_at").
		Values(productID, 0, 0, 0, squirrel.Expr("now()")).
		Suffix("ON CONFLICT (product_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("init counters: %w", err)
	}
	return nil
}

func (r *LedgerRepo) InsertMovement(ctx context.Context, m *ledger.Movement) error {
	sql, args, err := r.builder.
		Insert(movementsTable).
		SetMap(postgres.StructToMap(m)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// GetMovementForUpdate locks the entry so that two concurrent reversals of
// the same entry cannot both succeed.
func (r *LedgerRepo) GetMovementForUpdate(ctx context.Context, movementID id.ID) (ledger.Movement, error) {
	sql, args, err := r.builder.
		Select(movementCols...).
		From(movementsTable).
		Where(squirrel.Eq{"id": movementID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return ledger.Movement{}, fmt.Errorf("build query: %w", err)
	}

	var m ledger.Movement
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.Movement{}, apperror.NewNotFound("movement", movementID)
		}
		return ledger.Movement{}, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

func (r *LedgerRepo) DeleteMovement(ctx context.Context, movementID id.ID) error {
	sql, args, err := r.builder.
		Delete(movementsTable).
		Where(squirrel.Eq{"id": movementID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("movement", movementID)
	}
	return nil
}

// ListMovements returns entries newest first.
func (r *LedgerRepo) ListMovements(ctx context.Context, f ledger.MovementFilter) ([]ledger.Movement, error) {
	sql, args, err := r.listQuery(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []ledger.Movement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return items, nil
}

func (r *LedgerRepo) listQuery(f ledger.MovementFilter) squirrel.SelectBuilder {
	q := r.builder.Select(movementCols...).From(movementsTable)
	if f.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *f.ProductID})
	}
	if len(f.Kinds) > 0 {
		q = q.Where(squirrel.Eq{"movement_type": f.Kinds})
	}
	if f.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *f.FromDate})
	}
	if f.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *f.ToDate})
	}
	q = q.OrderBy("created_at DESC", "id DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return q
}
