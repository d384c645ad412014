package shipment_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/shipment"
)

func TestOwnersQuery_LeftJoinsPartner(t *testing.T) {
	p1, p2 := id.New(), id.New()

	sql, args, err := NewShipmentRepo(nil).ownersQuery([]id.ID{p1, p2}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT p.id AS product_id, p.name AS product_name, pt.id AS partner_id, pt.name AS partner_name "+
			"FROM products p LEFT JOIN partners pt ON pt.id = p.partner_id WHERE p.id IN ($1,$2)",
		sql)
	assert.Equal(t, []any{p1, p2}, args)
}

func TestPartnerDayKey_IsPerDay(t *testing.T) {
	partnerID := id.MustParse("0190a4c2-7b6e-7c1a-9f00-000000000001")
	morning := time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "shipment:0190a4c2-7b6e-7c1a-9f00-000000000001:2024-05-14", partnerDayKey(partnerID, morning))
	assert.NotEqual(t, partnerDayKey(partnerID, morning), partnerDayKey(partnerID, morning.AddDate(0, 0, 1)))
}

func TestListQuery_Unbilled(t *testing.T) {
	partnerID := id.New()

	sql, args, err := NewShipmentRepo(nil).listQuery(shipment.ListFilter{
		PartnerID: &partnerID,
		Unbilled:  true,
		Limit:     50,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE partner_id = $1 AND invoice_id IS NULL")
	assert.Contains(t, sql, "ORDER BY shipment_date DESC, number DESC LIMIT 50")
	assert.Equal(t, []any{partnerID}, args)
}

func TestOpenHeaderQuery_SkipsInvoicedHeaders(t *testing.T) {
	partnerID := id.New()
	day := time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)

	sql, args, err := NewShipmentRepo(nil).openHeaderQuery(partnerID, day).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "invoice_id IS NULL")
	assert.Contains(t, sql, "partner_id = $1")
	assert.Contains(t, sql, "shipment_date = $2")
	assert.Contains(t, sql, "status = $3")
	assert.True(t, strings.HasSuffix(sql, "ORDER BY created_at LIMIT 1 FOR UPDATE"), sql)
	assert.Equal(t, []any{partnerID, day, shipment.StatusConfirmed}, args)
}
