package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newFakeServer(t *testing.T, code int, response string) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.EscapedPath()
		rec.auth = r.Header.Get("Authorization")
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "tok"), rec
}

func TestClient_SendsBearerToken(t *testing.T) {
	c, rec := newFakeServer(t, http.StatusOK, `{"known":true,"is_connected":true,"is_reachable":true,"queue_length":2}`)
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", rec.auth)
	assert.Equal(t, "/api/v1/status", rec.path)
	assert.True(t, st.Online())
	assert.Equal(t, 2, st.QueueLength)
}

func TestClient_CachePutEncodesOptions(t *testing.T) {
	c, rec := newFakeServer(t, http.StatusOK, `{"item_count":1,"total_bytes":7}`)
	stats, err := c.CachePut(context.Background(), "user/42", json.RawMessage(`{"a":1}`), cache.PriorityCritical, 90*time.Second)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/v1/cache/user%2F42", rec.path)
	assert.Equal(t, "critical", rec.body["priority"])
	assert.Equal(t, "1m30s", rec.body["ttl"])
	assert.Equal(t, map[string]any{"a": float64(1)}, rec.body["payload"])
	assert.Equal(t, int64(7), stats.TotalBytes)
}

func TestClient_NotFound(t *testing.T) {
	c, _ := newFakeServer(t, http.StatusNotFound, `{"message":"cache entry not found"}`)
	_, err := c.CacheGet(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_APIErrorCarriesMessage(t *testing.T) {
	c, _ := newFakeServer(t, http.StatusConflict, `{"message":"sync already in progress"}`)
	_, err := c.Sync(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "sync already in progress", apiErr.Message)
}

func TestClient_APIErrorFallsBackToBody(t *testing.T) {
	c, _ := newFakeServer(t, http.StatusBadGateway, "upstream down\n")
	err := c.ClearQueue(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestClient_DegradedHealthIsNotAnError(t *testing.T) {
	c, _ := newFakeServer(t, http.StatusServiceUnavailable, `{"status":"degraded"}`)
	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "degraded", health["status"])
}

func TestClient_ListQueue(t *testing.T) {
	c, _ := newFakeServer(t, http.StatusOK, `{"actions":[{"id":"a1","type":"submit_form","priority":"high"}],"total":1}`)
	actions, err := c.ListQueue(context.Background())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, action.PriorityHigh, actions[0].Priority)
}

func TestClient_ReportNetwork(t *testing.T) {
	c, rec := newFakeServer(t, http.StatusOK, `{"is_connected":true,"transport_type":"cellular"}`)
	snap, err := c.ReportNetwork(context.Background(), true, false, "cellular")
	require.NoError(t, err)
	assert.Equal(t, false, rec.body["is_reachable"])
	assert.Equal(t, "cellular", snap.TransportType)
}
