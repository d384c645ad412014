package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverCounters(t *testing.T) {
	m := New(DefaultConfig("api"))

	m.MovementApplied("receiving")
	m.MovementApplied("receiving")
	m.MovementReversed("repair")
	m.BulkItemFailed("bulk_apply")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MovementsApplied.WithLabelValues("receiving")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MovementsReversed.WithLabelValues("repair")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BulkItemFailures.WithLabelValues("bulk_apply")))
}

func TestRecordEventPublished(t *testing.T) {
	m := New(DefaultConfig("worker"))

	m.RecordEventPublished("ledgerbook.ledger", "movement_applied", true, 5*time.Millisecond)
	m.RecordEventPublished("ledgerbook.ledger", "movement_applied", false, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("ledgerbook.ledger", "movement_applied", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("ledgerbook.ledger", "movement_applied", "failure")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New(DefaultConfig("api"))
	m.RecordHTTPRequest(http.MethodGet, "/api/v1/shipments/:id", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ledgerbook_api_http_requests_total")
	assert.Contains(t, rec.Body.String(), `path="/api/v1/shipments/:id"`)
}
