package invoice_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/id"
)

var (
	may1  = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	may31 = time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
)

func TestSummaryQuery_GroupsCohort(t *testing.T) {
	sql, args, err := NewInvoiceRepo(nil).summaryQuery(31, may1, may31).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM shipments s JOIN partners pt ON pt.id = s.partner_id")
	assert.Contains(t, sql, "WHERE s.invoice_id IS NULL AND s.status = $1 AND pt.closing_date = $2")
	assert.Contains(t, sql, "s.shipment_date >= $3 AND s.shipment_date <= $4")
	assert.Contains(t, sql, "GROUP BY s.partner_id, pt.name, pt.closing_date")
	assert.Equal(t, []any{"confirmed", 31, may1, may31}, args)
}

func TestLockQuery_LocksUnbilledRows(t *testing.T) {
	partnerID := id.New()

	sql, args, err := NewInvoiceRepo(nil).lockQuery(partnerID, may1, may31).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE partner_id = $1 AND invoice_id IS NULL AND status = $2")
	assert.True(t, strings.HasSuffix(sql, "FOR UPDATE"), sql)
	assert.Equal(t, partnerID, args[0])
}

func TestClaimQuery_OnlyUnbilled(t *testing.T) {
	invoiceID, s1, s2 := id.New(), id.New(), id.New()

	sql, args, err := NewInvoiceRepo(nil).claimQuery(invoiceID, []id.ID{s1, s2}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "UPDATE shipments SET invoice_id = $1 WHERE id IN ($2,$3) AND invoice_id IS NULL", sql)
	assert.Equal(t, []any{invoiceID, s1, s2}, args)
}
