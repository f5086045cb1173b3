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

func TestMetricsExposure(t *testing.T) {
	m := New()
	m.ObservePrediction("Food")
	m.ObservePrediction("Food")
	m.ObserveError("empty_title")
	m.ObserveRequest("/api/expenses/predict", http.StatusOK, time.Now().Add(-20*time.Millisecond))
	m.SetModel("run-1", 200, 150)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Predictions.WithLabelValues("Food")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PredictionErrors.WithLabelValues("empty_title")), 0)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `spice_predictions_total{category="Food"} 2`)
	assert.Contains(t, body, `spice_prediction_errors_total{reason="empty_title"} 1`)
	assert.Contains(t, body, `spice_http_request_duration_seconds_count{path="/api/expenses/predict",status="200"} 1`)
	assert.Contains(t, body, `spice_model_info{run_id="run-1",trees="200",vocabulary="150"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestSetModel_Replaces(t *testing.T) {
	m := New()
	m.SetModel("old", 10, 5)
	m.SetModel("new", 20, 6)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ModelInfo))
}
