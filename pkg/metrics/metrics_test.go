package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("a")
	b := NewCollector("b")

	a.CacheMisses.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.CacheMisses))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheMisses))
}

func TestObserveRequest(t *testing.T) {
	c := NewCollector("hd")
	c.ObserveRequest("GET", "/health", "200", 5*time.Millisecond)
	c.ObserveRequest("GET", "/health", "200", 7*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.HTTPDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("hd")
	c.ObserveLoad("computed", 20*time.Millisecond)
	c.RecordsExtracted.WithLabelValues("HKQuantityTypeIdentifierStepCount").Add(3)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `hd_records_extracted_total{type="HKQuantityTypeIdentifierStepCount"} 3`)
	assert.Contains(t, body, `hd_load_duration_seconds_count{outcome="computed"} 1`)
}
