// Package client is a small HTTP client for the offline-sync admin API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/domain/auth"
	"github.com/avatarctic/offline-sync/internal/core/domain/cache"
	"github.com/avatarctic/offline-sync/internal/core/domain/network"
	"github.com/avatarctic/offline-sync/internal/core/domain/status"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// APIError carries the status code and the server's message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Login(ctx context.Context, username, password string) (*auth.AuthTokens, error) {
	var out auth.AuthTokens
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/token", auth.LoginRequest{Username: username, Password: password}, &out)
	return &out, err
}

func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		// degraded health still carries a body worth showing
		return out, nil
	}
	return out, err
}

func (c *Client) Status(ctx context.Context) (*status.Status, error) {
	var out status.Status
	err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out)
	return &out, err
}

func (c *Client) CacheStats(ctx context.Context) (*cache.Stats, error) {
	var out cache.Stats
	err := c.do(ctx, http.MethodGet, "/api/v1/cache/stats", nil, &out)
	return &out, err
}

func (c *Client) CacheGet(ctx context.Context, key string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, "/api/v1/cache/"+url.PathEscape(key), nil, &out)
	return out, err
}

func (c *Client) CachePut(ctx context.Context, key string, payload json.RawMessage, priority cache.Priority, ttl time.Duration) (*cache.Stats, error) {
	body := map[string]any{"payload": payload, "priority": priority}
	if ttl > 0 {
		body["ttl"] = ttl.String()
	}
	var out cache.Stats
	err := c.do(ctx, http.MethodPut, "/api/v1/cache/"+url.PathEscape(key), body, &out)
	return &out, err
}

func (c *Client) CacheDelete(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/cache/"+url.PathEscape(key), nil, nil)
}

func (c *Client) CacheClear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/cache", nil, nil)
}

func (c *Client) ListQueue(ctx context.Context) ([]*action.Action, error) {
	var out struct {
		Actions []*action.Action `json:"actions"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/queue", nil, &out)
	return out.Actions, err
}

func (c *Client) Enqueue(ctx context.Context, req *action.EnqueueRequest) (*action.Action, error) {
	var out action.Action
	err := c.do(ctx, http.MethodPost, "/api/v1/queue", req, &out)
	return &out, err
}

func (c *Client) ClearQueue(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/queue", nil, nil)
}

func (c *Client) Sync(ctx context.Context) (*action.SyncResult, error) {
	var out action.SyncResult
	err := c.do(ctx, http.MethodPost, "/api/v1/sync", nil, &out)
	return &out, err
}

func (c *Client) LastSync(ctx context.Context) (*action.SyncResult, error) {
	var out action.SyncResult
	err := c.do(ctx, http.MethodGet, "/api/v1/sync/last", nil, &out)
	return &out, err
}

// NetworkView is the monitor's current observation as served by GET /api/v1/network.
type NetworkView struct {
	Known    bool             `json:"known"`
	Online   bool             `json:"online"`
	Snapshot network.Snapshot `json:"snapshot"`
}

func (c *Client) Network(ctx context.Context) (*NetworkView, error) {
	var out NetworkView
	err := c.do(ctx, http.MethodGet, "/api/v1/network", nil, &out)
	return &out, err
}

func (c *Client) RefreshNetwork(ctx context.Context) (*network.Snapshot, error) {
	var out network.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/v1/network/refresh", nil, &out)
	return &out, err
}

func (c *Client) ReportNetwork(ctx context.Context, connected, reachable bool, transport string) (*network.Snapshot, error) {
	body := map[string]any{"is_connected": connected, "is_reachable": reachable, "transport_type": transport}
	var out network.Snapshot
	err := c.do(ctx, http.MethodPut, "/api/v1/network", body, &out)
	return &out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	if resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}
	return nil
}
