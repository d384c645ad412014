package ledger_repo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"

	"ledgerbook/internal/domain/ledger"
	"ledgerbook/internal/infrastructure/storage/postgres"
)

// SumExpr returns an aggregate expression over inventory_movements (aliased
// alias) that yields the contribution of live entries to counter c. It is
// generated from the movement rule table, so a new kind needs no SQL change.
func SumExpr(alias string, c ledger.Counter) string {
	rules := ledger.Rules()
	sort.Slice(rules, func(i, j int) bool { return rules[i].Kind < rules[j].Kind })

	var b strings.Builder
	fmt.Fprintf(&b, "COALESCE(SUM(CASE %s.movement_type", alias)
	for _, rule := range rules {
		switch rule.Contribution(c) {
		case 1:
			fmt.Fprintf(&b, " WHEN '%s' THEN %s.quantity_change", rule.Kind, alias)
		case -1:
			fmt.Fprintf(&b, " WHEN '%s' THEN -%s.quantity_change", rule.Kind, alias)
		}
	}
	b.WriteString(" ELSE 0 END), 0)")
	return b.String()
}

// ImportMovements bulk-loads historical entries with COPY and then rebuilds
// the counters of every product they touch. It must run inside a transaction.
func (r *LedgerRepo) ImportMovements(ctx context.Context, movements []ledger.Movement) (int64, error) {
	if len(movements) == 0 {
		return 0, nil
	}

	columns := []string{
		"id", "product_id", "movement_type", "quantity_change",
		"reason", "defect_reason", "due_date", "created_by", "created_at",
	}
	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, []any{
			m.ID, m.ProductID, string(m.Kind), m.QuantityChange,
			m.Reason, m.DefectReason, m.DueDate, m.CreatedBy, m.CreatedAt,
		})
	}

	n, err := postgres.NewBatchInserter(r.txm).CopyFromSlice(ctx, movementsTable, columns, rows)
	if err != nil {
		return 0, fmt.Errorf("copy movements: %w", err)
	}
	if err := r.RebuildCounters(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

// RebuildCounters overwrites the counters of every product that has ledger
// entries with the sums of those entries.
func (r *LedgerRepo) RebuildCounters(ctx context.Context) error {
	sql, args, err := r.rebuildQuery().ToSql()
	if err != nil {
		return fmt.Errorf("build rebuild: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("rebuild counters: %w", err)
	}
	return nil
}

func (r *LedgerRepo) rebuildQuery() squirrel.UpdateBuilder {
	sums := r.builder.
		Select(
			"m.product_id",
			SumExpr("m", ledger.CounterRaw)+" AS raw",
			SumExpr("m", ledger.CounterFinished)+" AS finished",
			SumExpr("m", ledger.CounterDefective)+" AS defective",
		).
		From(movementsTable + " m").
		GroupBy("m.product_id")

	sumsSQL, _, _ := sums.ToSql()

	return r.builder.
		Update(inventoryTable+" i").
		Set("raw", squirrel.Expr("s.raw")).
		Set("finished", squirrel.Expr("s.finished")).
		Set("defective", squirrel.Expr("s.defective")).
		Set("last_updated_at", squirrel.Expr("now()")).
		Suffix("FROM (" + sumsSQL + ") s WHERE s.product_id = i.product_id")
}
