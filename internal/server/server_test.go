package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/metrics"
	"github.com/Veraticus/spice-categorizer/internal/predict"
	spicetest "github.com/Veraticus/spice-categorizer/internal/testutil"
)

type stubPredictor struct {
	err      error
	panicMsg string
	category string
	gotTitle string
	gotAmt   float64
}

func (s *stubPredictor) Predict(title string, amount float64) (string, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.gotTitle = title
	s.gotAmt = amount
	return s.category, s.err
}

func newTestServer(t *testing.T, p Predictor) (*Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	return New(":0", p, m, DefaultOptions()), m
}

func do(t *testing.T, s *Server, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, PredictPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPredict_Success(t *testing.T) {
	stub := &stubPredictor{category: "Food"}
	s, m := newTestServer(t, stub)

	rec := do(t, s, http.MethodPost, `{"title": "  Starbucks Coffee "}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]string{"category": "Food"}, decode(t, rec))
	assert.Equal(t, "starbucks coffee", stub.gotTitle)
	assert.Zero(t, stub.gotAmt)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.InDelta(t, 1, testutil.ToFloat64(m.Predictions.WithLabelValues("Food")), 0)
}

func TestPredict_Amount(t *testing.T) {
	stub := &stubPredictor{category: "Transport"}
	s, _ := newTestServer(t, stub)

	rec := do(t, s, http.MethodPost, `{"title": "uber ride", "amount": 25}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25.0, stub.gotAmt)
}

func TestPredict_TitleRequired(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty title", body: `{"title": ""}`},
		{name: "whitespace title", body: `{"title": "   \t"}`},
		{name: "missing title", body: `{"amount": 3}`},
		{name: "null title", body: `{"title": null}`},
		{name: "empty object", body: `{}`},
		{name: "malformed json", body: `{"title": `},
		{name: "empty body", body: ``},
		{name: "wrong type", body: `{"title": 42}`},
		{name: "trailing garbage", body: `{"title": "coffee"} junk`},
		{name: "two objects", body: `{"title": "coffee"}{"title": "tea"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubPredictor{category: "Food"}
			s, _ := newTestServer(t, stub)

			rec := do(t, s, http.MethodPost, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]string{"error": "Title is required"}, decode(t, rec))
			assert.Empty(t, stub.gotTitle, "predictor must not be called")
		})
	}
}

func TestPredict_TrailingWhitespace(t *testing.T) {
	stub := &stubPredictor{category: "Food"}
	s, _ := newTestServer(t, stub)

	rec := do(t, s, http.MethodPost, "{\"title\": \"coffee\"}\n\t ")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "coffee", stub.gotTitle)
}

func TestPredict_PredictorError(t *testing.T) {
	s, m := newTestServer(t, &stubPredictor{err: errors.New("boom")})

	rec := do(t, s, http.MethodPost, `{"title": "coffee"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": "internal error"}, decode(t, rec))
	assert.InDelta(t, 1, testutil.ToFloat64(m.PredictionErrors.WithLabelValues("predict")), 0)
}

func TestPredict_Panic(t *testing.T) {
	s, _ := newTestServer(t, &stubPredictor{panicMsg: "corrupt tree"})

	rec := do(t, s, http.MethodPost, `{"title": "coffee"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": "internal error"}, decode(t, rec))
}

func TestPredict_Methods(t *testing.T) {
	s, _ := newTestServer(t, &stubPredictor{category: "Food"})

	rec := do(t, s, http.MethodGet, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Allow"))

	rec = do(t, s, http.MethodOptions, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestPredict_CORSOrigin(t *testing.T) {
	opts := DefaultOptions()
	opts.CORSOrigin = "https://app.example.com"
	s := New(":0", &stubPredictor{category: "Food"}, metrics.New(), opts)

	rec := do(t, s, http.MethodPost, `{"title": "coffee"}`)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestPredict_BodyLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxBodyBytes = 16
	stub := &stubPredictor{category: "Food"}
	s := New(":0", stub, metrics.New(), opts)

	rec := do(t, s, http.MethodPost, `{"title": "`+strings.Repeat("x", 100)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, stub.gotTitle)
}

func TestHealthAndReady(t *testing.T) {
	s, _ := newTestServer(t, &stubPredictor{})

	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, want, rec.Body.String(), path)
	}

	notReady, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	notReady.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubPredictor{category: "Food"})
	do(t, s, http.MethodPost, `{"title": "coffee"}`)

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `spice_predictions_total{category="Food"} 1`)
}

// End to end against a real model trained on the fixture dataset.
func TestPredict_TrainedModel(t *testing.T) {
	enc, f := spicetest.FitModel(t, spicetest.Records())
	p, err := predict.New(enc, f, "run-1")
	require.NoError(t, err)

	s, _ := newTestServer(t, p)
	srv := httptest.NewServer(s.Handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+PredictPath, "application/json", strings.NewReader(`{"title": "starbucks coffee"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, spicetest.Categories(), body["category"])

	resp2, err := http.Post(srv.URL+PredictPath, "application/json", strings.NewReader(`{"title": ""}`))
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	var errBody map[string]string
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&errBody))
	assert.Equal(t, map[string]string{"error": "Title is required"}, errBody)
}

func TestServe_GracefulShutdown(t *testing.T) {
	s, _ := newTestServer(t, &stubPredictor{category: "Food"})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx // test helper
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	s, _ := newTestServer(t, &stubPredictor{})
	h := s.withMiddleware("/x", func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusAccepted)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, RequestID(context.Background()))
}
