package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rondo/internal/analytics"
	"rondo/internal/health"
)

func newTestServer(t *testing.T) (*Server, *analytics.Store) {
	t.Helper()
	store, err := analytics.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	manager := health.NewManager("test")
	return New("127.0.0.1:0", manager, store), store
}

func TestProbesAndStats(t *testing.T) {
	srv, store := newTestServer(t)
	store.RecordConversion(context.Background(), 7)

	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		res, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode, path)
	}

	res, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var payload struct {
		TotalConversions int64 `json:"total_conversions"`
		Detailed         struct {
			TotalErrors int64 `json:"total_errors"`
		} `json:"detailed"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	assert.Equal(t, int64(1), payload.TotalConversions)
	assert.Zero(t, payload.Detailed.TotalErrors)
}

func TestStatsDisabledWithoutStore(t *testing.T) {
	srv := New("127.0.0.1:0", health.NewManager("test"), nil)
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	res, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestMetricsExposition(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
