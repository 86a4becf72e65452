package httpserver_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avatarctic/offline-sync/internal/application/services"
	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/domain/auth"
	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
	"github.com/avatarctic/offline-sync/internal/core/domain/network"
	"github.com/avatarctic/offline-sync/internal/core/domain/status"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/avatarctic/offline-sync/internal/infrastructure/httpserver"
	"github.com/avatarctic/offline-sync/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	server  *httpserver.Server
	engine  *services.OfflineService
	handler *mocks.HandlerMock
}

func newTestServer(t *testing.T, authSvc ports.AuthService, checkers ...ports.HealthChecker) *testServer {
	t.Helper()
	engine := services.NewOfflineService(nil, nil, &services.OfflineServiceConfig{
		Cache: services.BoundedCacheConfig{MaxBytes: 1024},
		Queue: services.ActionQueueConfig{DefaultMaxRetries: 3},
		Sync:  services.SyncProcessorConfig{Interval: time.Hour},
	}, nil, nil)
	handler := &mocks.HandlerMock{}
	require.NoError(t, engine.RegisterHandler(action.TypeSubmitForm, handler))
	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(func() { _ = engine.Close(context.Background()) })

	srv := httpserver.NewServer(&httpserver.ServerConfig{MetricsEnabled: true}, nil, httpserver.ServerDeps{
		Engine:         engine,
		AuthService:    authSvc,
		HealthCheckers: checkers,
	})
	return &testServer{server: srv, engine: engine, handler: handler}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.server.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, &mocks.HealthCheckerMock{CheckerName: "badger"})
	rec := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "unknown", body["connectivity"])

	ts.engine.ReportNetwork(mocks.Offline())
	decode(t, ts.do(t, http.MethodGet, "/health", nil), &body)
	assert.Equal(t, "offline", body["connectivity"], "offline is not unhealthy")
}

func TestHealth_DegradedDependency(t *testing.T) {
	ts := newTestServer(t, nil, &mocks.HealthCheckerMock{CheckerName: "redis", Err: errors.New("connection refused")})
	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"unhealthy"`)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodGet, "/health", nil)
	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestCacheRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPut, "/api/v1/cache/forecast", map[string]any{
		"payload":  map[string]int{"high": 18},
		"priority": "important",
		"ttl":      "1h",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats cache.Stats
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.ItemCount)
	assert.Equal(t, int64(11), stats.BytesByPriority[cache.PriorityImportant])

	rec = ts.do(t, http.MethodGet, "/api/v1/cache/forecast", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"high":18}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/v1/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/v1/cache/x", map[string]any{"payload": 1, "ttl": "forever"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/v1/cache/x", map[string]any{"payload": 1, "priority": "urgent"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/v1/cache/x", map[string]any{"ttl": "1h"}).Code)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/v1/cache/forecast", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/v1/cache/forecast", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/cache/forecast", nil).Code)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/v1/cache", nil).Code)
}

func TestQueueRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.engine.ReportNetwork(mocks.Offline())

	rec := ts.do(t, http.MethodPost, "/api/v1/queue", map[string]any{"type": "weather_request"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no handler registered")
	rec = ts.do(t, http.MethodPost, "/api/v1/queue", map[string]any{"priority": "high"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "type is required")
	rec = ts.do(t, http.MethodPost, "/api/v1/queue", map[string]any{"type": "submit_form", "max_retries": -2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/queue", map[string]any{"type": "submit_form", "priority": "high", "payload": map[string]string{"a": "b"}})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var queued action.Action
	decode(t, rec, &queued)
	assert.Equal(t, action.PriorityHigh, queued.Priority)

	var list struct {
		Actions []*action.Action `json:"actions"`
		Total   int              `json:"total"`
	}
	decode(t, ts.do(t, http.MethodGet, "/api/v1/queue", nil), &list)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, queued.ID, list.Actions[0].ID)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/v1/queue", nil).Code)
	decode(t, ts.do(t, http.MethodGet, "/api/v1/queue", nil), &list)
	assert.Equal(t, 0, list.Total)
}

func TestSyncRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/sync/last", nil).Code)

	ts.engine.ReportNetwork(mocks.Offline())
	rec := ts.do(t, http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result action.SyncResult
	decode(t, rec, &result)
	assert.True(t, result.Skipped)
	assert.Equal(t, "offline", result.SkipReason)

	rec = ts.do(t, http.MethodGet, "/api/v1/sync/last", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNetworkRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPut, "/api/v1/network", map[string]any{"is_connected": true, "is_reachable": true, "transport_type": "wifi"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view struct {
		Known    bool             `json:"known"`
		Online   bool             `json:"online"`
		Snapshot network.Snapshot `json:"snapshot"`
	}
	decode(t, ts.do(t, http.MethodGet, "/api/v1/network", nil), &view)
	assert.True(t, view.Known)
	assert.True(t, view.Online)
	assert.Equal(t, network.TransportWiFi, view.Snapshot.TransportType)

	rec = ts.do(t, http.MethodPut, "/api/v1/network", map[string]any{"is_connected": true, "transport_type": "carrier-pigeon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/network/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st status.Status
	decode(t, ts.do(t, http.MethodGet, "/api/v1/status", nil), &st)
	assert.True(t, st.Online())
}

func TestAuthentication(t *testing.T) {
	authMock := &mocks.AuthServiceMock{
		LoginFn: func(ctx context.Context, req *auth.LoginRequest) (*auth.AuthTokens, error) {
			if req.Username == "admin" && req.Password == "pw" {
				return &auth.AuthTokens{AccessToken: "good", TokenType: "Bearer", ExpiresIn: 900}, nil
			}
			return nil, errors.New("invalid credentials")
		},
		ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
			if token == "good" {
				return &auth.Claims{Username: "admin", Scope: auth.ScopeAdmin}, nil
			}
			return nil, errors.New("invalid token")
		},
	}
	ts := newTestServer(t, authMock)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/v1/status", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/v1/status", nil, "Authorization", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/v1/status", nil, "Authorization", "Bearer bad").Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/status", nil, "Authorization", "Bearer good").Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", nil).Code, "health stays public")

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/api/v1/auth/token", map[string]string{"username": "admin", "password": "nope"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/v1/auth/token", map[string]string{"username": "admin"}).Code)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/token", map[string]string{"username": "admin", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	var tokens auth.AuthTokens
	decode(t, rec, &tokens)
	assert.Equal(t, "good", tokens.AccessToken)
}

func TestTokenEndpointDisabledWithoutAuth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/token", map[string]string{"username": "admin", "password": "pw"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusStream(t *testing.T) {
	ts := newTestServer(t, nil)
	httpSrv := httptest.NewServer(ts.server.Echo())
	defer httpSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpSrv.URL+"/api/v1/status/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan status.Status, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var st status.Status
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &st) == nil {
				events <- st
			}
		}
		close(events)
	}()

	first := <-events
	assert.False(t, first.Known)

	ts.engine.ReportNetwork(mocks.Online())
	for st := range events {
		if st.Known {
			assert.True(t, st.Online())
			return
		}
	}
	t.Fatal("stream closed before the connectivity update arrived")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	ts := newTestServer(t, nil)
	srv := httpserver.NewServer(&httpserver.ServerConfig{Host: "127.0.0.1", Port: "0"}, nil, httpserver.ServerDeps{Engine: ts.engine})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
