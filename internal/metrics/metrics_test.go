package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRun("DESTINATION_ONE", "SUCCESS", 2*time.Second)
	m.IncListing("DESTINATION_ONE", "created")
	m.IncListing("DESTINATION_ONE", "created")
	m.IncError("DESTINATION_ONE", "listing_processing")
	m.IncProviderRequest("DESTINATION_ONE", "ok")
	m.AddErrors("DESTINATION_ONE", "mapping_fetch", 2)
	m.AddErrors("DESTINATION_ONE", "mapping_fetch", 0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RunsTotal.WithLabelValues("DESTINATION_ONE", "SUCCESS")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ListingsTotal.WithLabelValues("DESTINATION_ONE", "created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("DESTINATION_ONE", "listing_processing")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("DESTINATION_ONE", "mapping_fetch")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderRequestsTotal.WithLabelValues("DESTINATION_ONE", "ok")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveRun("p", "FAILED", time.Second)
		m.IncListing("p", "skipped")
		m.IncError("p", "mapping_fetch")
		m.IncProviderRequest("p", "error")
		m.AddErrors("p", "mapping_fetch", 3)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IncListing("DESTINATION_ONE", "updated")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `catalog_sync_listings_total{action="updated",provider="DESTINATION_ONE"} 1`))
}
