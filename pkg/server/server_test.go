package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/aigateway/pkg/analytics"
	"github.com/coursekit/aigateway/pkg/backend"
	"github.com/coursekit/aigateway/pkg/cache"
	"github.com/coursekit/aigateway/pkg/config"
	"github.com/coursekit/aigateway/pkg/gateway"
	"github.com/coursekit/aigateway/pkg/ratelimit"
)

// testRouter wires a full offline-mode stack behind the router.
func testRouter(t *testing.T, maxRequests int64) http.Handler {
	t.Helper()

	cfg := config.BackendConfig{Mode: config.ModeOffline}
	cfg.SetDefaults()
	client := backend.New(cfg, []config.NotebookConfig{
		{ID: "go-basics", Name: "Go Basics", Active: true},
	})
	client.Initialize(context.Background())

	limiter, err := ratelimit.NewFixedWindow(maxRequests, time.Hour, ratelimit.NewMemoryStore())
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	svc := gateway.NewService(limiter, cache.NewMemoryStore(), client, analytics.NewMemoryRecorder(),
		gateway.WithMetrics(gateway.NewMetrics(registry)))

	return NewRouter(svc, registry)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAskEndpoint(t *testing.T) {
	router := testRouter(t, 20)

	w := postJSON(t, router, "/v1/ask", AskRequest{UserID: "u1", Question: "What is a slice?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result gateway.AnswerResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Contains(t, result.Answer, "What is a slice?")
	assert.True(t, result.Degraded)
	assert.Equal(t, int64(19), result.RateLimitRemaining)
}

func TestAskEndpoint_Validation(t *testing.T) {
	router := testRouter(t, 20)

	w := postJSON(t, router, "/v1/ask", AskRequest{UserID: "u1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, router, "/v1/ask", AskRequest{Question: "q"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskEndpoint_UnknownNotebookIs404(t *testing.T) {
	router := testRouter(t, 20)

	w := postJSON(t, router, "/v1/ask", AskRequest{UserID: "u1", Question: "q", NotebookID: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAskEndpoint_RateLimitedIs429WithRetryAfter(t *testing.T) {
	router := testRouter(t, 1)

	w := postJSON(t, router, "/v1/ask", AskRequest{UserID: "u1", Question: "q"})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/v1/ask", AskRequest{UserID: "u1", Question: "q"})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body RateLimitedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Greater(t, body.RetryAfterSeconds, 0)
}

func TestQuizEndpoint_OfflineIsEmptyNotError(t *testing.T) {
	router := testRouter(t, 20)

	w := postJSON(t, router, "/v1/lessons/l1/quiz", GenerateRequest{Topic: "maps"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result gateway.QuizResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Empty(t, result.Questions)
	assert.True(t, result.Degraded)
}

func TestContentEndpoint_TopicRequired(t *testing.T) {
	router := testRouter(t, 20)

	w := postJSON(t, router, "/v1/lessons/l1/content", GenerateRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusEndpoint(t *testing.T) {
	router := testRouter(t, 20)

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var status backend.ConnectionStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Connected)
	assert.Equal(t, config.ModeOffline, status.Mode)
}

func TestNotebooksEndpoint(t *testing.T) {
	router := testRouter(t, 20)

	req := httptest.NewRequest(http.MethodGet, "/v1/notebooks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var notebooks []backend.Notebook
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notebooks))
	require.Len(t, notebooks, 1)
	assert.Equal(t, "go-basics", notebooks[0].ID)
}

func TestDailyUsageEndpoint(t *testing.T) {
	router := testRouter(t, 20)

	// Generate one event first.
	w := postJSON(t, router, "/v1/ask", AskRequest{UserID: "u1", Question: "q"})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/usage/daily", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var aggregates []analytics.DailyAggregate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &aggregates))
	require.Len(t, aggregates, 1)
	assert.Equal(t, analytics.FeatureQA, aggregates[0].Feature)
	assert.Equal(t, int64(1), aggregates[0].TotalRequests)

	req = httptest.NewRequest(http.MethodGet, "/v1/usage/daily?from=2026-01-31&to=2026-01-01", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	router := testRouter(t, 20)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
