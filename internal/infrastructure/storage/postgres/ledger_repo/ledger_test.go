package ledger_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/ledger"
)

func TestApplyDeltasQuery_InPlaceIncrement(t *testing.T) {
	repo := NewLedgerRepo(nil)
	productID := id.New()
	rule, ok := ledger.RuleFor(ledger.KindRepair)
	require.True(t, ok)

	q, err := repo.applyDeltasQuery(productID, rule.Deltas(5))
	require.NoError(t, err)
	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"UPDATE inventory SET finished = finished + $1, defective = defective + $2, last_updated_at = now() WHERE product_id = $3",
		sql)
	assert.Equal(t, []any{int64(5), int64(-5), productID}, args)
}

func TestApplyDeltasQuery_RejectsUnknownCounter(t *testing.T) {
	_, err := NewLedgerRepo(nil).applyDeltasQuery(id.New(), []ledger.Delta{{Counter: "scrap", Amount: 1}})
	assert.Error(t, err)
}

func TestListQuery(t *testing.T) {
	productID := id.New()
	f := ledger.MovementFilter{
		ProductID: &productID,
		Kinds:     []ledger.Kind{ledger.KindShipping, ledger.KindShippingCancel},
		Limit:     20,
		Offset:    40,
	}

	sql, args, err := NewLedgerRepo(nil).listQuery(f).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM inventory_movements WHERE product_id = $1 AND movement_type IN ($2,$3)")
	assert.Contains(t, sql, "ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 40")
	assert.Len(t, args, 3)
}

func TestSumExpr_FollowsRuleTable(t *testing.T) {
	finished := SumExpr("m", ledger.CounterFinished)

	assert.Contains(t, finished, "WHEN 'production_finished' THEN m.quantity_change")
	assert.Contains(t, finished, "WHEN 'shipping' THEN m.quantity_change")
	assert.Contains(t, finished, "WHEN 'repair' THEN m.quantity_change")
	assert.NotContains(t, finished, "'receiving'")

	defective := SumExpr("m", ledger.CounterDefective)
	assert.Contains(t, defective, "WHEN 'repair' THEN -m.quantity_change")
	assert.Contains(t, defective, "WHEN 'return_cancel' THEN m.quantity_change")
}

func TestRebuildQuery(t *testing.T) {
	sql, _, err := NewLedgerRepo(nil).rebuildQuery().ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "UPDATE inventory i SET raw = s.raw")
	assert.Contains(t, sql, "GROUP BY m.product_id) s WHERE s.product_id = i.product_id")
}
