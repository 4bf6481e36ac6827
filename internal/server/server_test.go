package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kastor/polyglot-gateway/internal/config"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg := config.Defaults()
	cfg.Store.URL = "sqlite://" + filepath.Join(t.TempDir(), "gateway.db")
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.Close(context.Background())
	})
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNew_UnsupportedStore(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.URL = "redis://localhost:6379"

	_, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store target")
}

func TestSnippetsRoundTrip(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rr := do(t, h, http.MethodGet, "/api/snippets", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/api/snippets", `{"title":"hello","code":"print(1)"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var created struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.True(t, created.Success)
	assert.NotEmpty(t, created.ID)

	rr = do(t, h, http.MethodPost, "/api/snippets", `{"title":"second","code":"print(2)"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/snippets", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var listed []struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Code      string `json:"code"`
		CreatedAt string `json:"createdAt"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "second", listed[0].Title, "newest first")
	assert.Equal(t, "hello", listed[1].Title)
	assert.Equal(t, created.ID, listed[1].ID)
	assert.Equal(t, "print(1)", listed[1].Code)

	ts, err := time.Parse("2006-01-02T15:04:05.000Z", listed[1].CreatedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestCreateSnippet_Validation(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"empty title", `{"title":""}`, "title and code are required"},
		{"missing code", `{"title":"hello"}`, "title and code are required"},
		{"blank code", `{"title":"hello","code":"   "}`, "title and code are required"},
		{"malformed json", `{"title":`, "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/snippets", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.JSONEq(t, `{"error":"`+tt.wantErr+`"}`, rr.Body.String())
		})
	}

	rr := do(t, h, http.MethodGet, "/api/snippets", "")
	assert.JSONEq(t, `[]`, rr.Body.String(), "rejected creates must not persist")
}

func TestSnippets_StoreUnreachable(t *testing.T) {
	h := newTestServer(t, func(cfg *config.Config) {
		cfg.Store.URL = "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200"
		cfg.Store.ConnectTimeout = 300 * time.Millisecond
	}).Handler()

	rr := do(t, h, http.MethodGet, "/api/snippets", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch snippets"}`, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/api/snippets", `{"title":"t","code":"c"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to save snippet"}`, rr.Body.String())

	// Liveness does not depend on the store.
	rr = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestStaticRoutes(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rr := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "OK", health["status"])
	assert.Equal(t, "Kastor Polyglot Suite API Gateway", health["message"])
	assert.NotEmpty(t, health["timestamp"])

	rr = do(t, h, http.MethodGet, "/api/test", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"API Gateway is working!","tech":"Go + chi + MongoDB"}`, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/api/summarize", `{"text":"short"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"summary":"Mock summary: short","original_length":5}`, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/api/scrape", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"URL is required"}`, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/snippets", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, func(cfg *config.Config) {
		cfg.CORS.AllowedOrigins = []string{"https://app.example"}
	}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/snippets", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Less(t, rr.Code, 300)
	assert.Equal(t, "https://app.example", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		h := newTestServer(t, nil).Handler()

		do(t, h, http.MethodGet, "/api/snippets", "")
		do(t, h, http.MethodGet, "/api/snippets", "")

		rr := do(t, h, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rr.Code)

		body := rr.Body.String()
		assert.Regexp(t, `gateway_http_requests_total\{method="GET",route="/api/snippets/?",status="200"\} 2`, body)
		assert.Contains(t, body, `gateway_store_connect_attempts_total{backend="sqlite",result="success"} 1`)
		assert.Contains(t, body, "go_goroutines")
	})

	t.Run("disabled", func(t *testing.T) {
		h := newTestServer(t, func(cfg *config.Config) {
			cfg.Metrics.Enabled = false
		}).Handler()

		rr := do(t, h, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
