package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string, label, value string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestMetrics_Counters(t *testing.T) {
	m := New("wine-search", false)

	m.AddNormalized(domain.SchemaFlat, 3)
	m.AddNormalized(domain.SchemaFlat, 2)
	m.AddUpserted(5)
	m.IncQuery("ok")
	m.IncQuery("ok")
	m.IncQuery("error")
	m.ObserveStage("embed", 120*time.Millisecond)
	m.ObserveEmbedding(5)

	assert.Equal(t, 5.0, counterValue(t, m, "wine_search_normalized_products_total", "schema", "flat"))
	assert.Equal(t, 5.0, counterValue(t, m, "wine_search_upserted_points_total", "service", "wine-search"))
	assert.Equal(t, 2.0, counterValue(t, m, "wine_search_queries_total", "outcome", "ok"))
	assert.Equal(t, 1.0, counterValue(t, m, "wine_search_queries_total", "outcome", "error"))
}

func TestMetrics_Handler(t *testing.T) {
	m := New("wine-search", true)
	m.ObserveRequest("/query", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `wine_search_http_request_duration_seconds_count{route="/query",service="wine-search",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
