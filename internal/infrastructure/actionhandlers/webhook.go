package actionhandlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// WebhookHandler POSTs the action payload to a fixed endpoint. The action ID is sent as
// Idempotency-Key so the receiver can drop redeliveries.
type WebhookHandler struct {
	url    string
	client *http.Client
	logger *logrus.Logger
}

func NewWebhookHandler(url string, timeout time.Duration, logger *logrus.Logger) *WebhookHandler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebhookHandler{url: url, client: &http.Client{Timeout: timeout}, logger: logger}
}

func (h *WebhookHandler) Handle(ctx context.Context, a *action.Action) error {
	body := a.Payload
	if len(body) == 0 {
		body = []byte("null")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return action.Permanent(fmt.Errorf("invalid webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", a.ID)
	req.Header.Set("X-Action-Type", string(a.Type))
	req.Header.Set("X-Action-Attempt", fmt.Sprint(a.RetryCount+1))

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", h.url, err)
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if h.logger != nil {
		h.logger.WithFields(logrus.Fields{
			"action_id":   a.ID,
			"action_type": a.Type,
			"status_code": resp.StatusCode,
		}).Debug("webhook delivered")
	}

	switch {
	case resp.StatusCode < http.StatusBadRequest:
		return nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("webhook %s returned %d", h.url, resp.StatusCode)
	default:
		return action.Permanent(fmt.Errorf("webhook %s rejected action with %d: %s", h.url, resp.StatusCode, bytes.TrimSpace(snippet)))
	}
}

var _ ports.ActionHandler = (*WebhookHandler)(nil)
