package actionhandlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/avatarctic/offline-sync/internal/infrastructure/actionhandlers"
	"github.com/avatarctic/offline-sync/internal/infrastructure/email"
	"github.com/avatarctic/offline-sync/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookHandler_DeliversPayloadWithIdempotencyKey(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	h := actionhandlers.NewWebhookHandler(srv.URL, time.Second, nil)
	a := &action.Action{ID: "act-1", Type: action.TypeSubmitForm, Payload: json.RawMessage(`{"name":"a"}`), RetryCount: 2}

	require.NoError(t, h.Handle(context.Background(), a))
	assert.JSONEq(t, `{"name":"a"}`, string(gotBody))
	assert.Equal(t, "act-1", gotHeaders.Get("Idempotency-Key"))
	assert.Equal(t, "submit_form", gotHeaders.Get("X-Action-Type"))
	assert.Equal(t, "3", gotHeaders.Get("X-Action-Attempt"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
}

func TestWebhookHandler_ClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		status    int
		wantErr   bool
		permanent bool
	}{
		{http.StatusOK, false, false},
		{http.StatusNoContent, false, false},
		{http.StatusBadRequest, true, true},
		{http.StatusUnprocessableEntity, true, true},
		{http.StatusRequestTimeout, true, false},
		{http.StatusTooManyRequests, true, false},
		{http.StatusServiceUnavailable, true, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			err := actionhandlers.NewWebhookHandler(srv.URL, time.Second, nil).
				Handle(context.Background(), &action.Action{ID: "a", Type: action.TypeSubmitForm})
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.permanent, action.IsPermanent(err))
		})
	}
}

func TestWebhookHandler_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := actionhandlers.NewWebhookHandler(url, time.Second, nil).
		Handle(context.Background(), &action.Action{ID: "a", Type: action.TypeSubmitForm})
	require.Error(t, err)
	assert.False(t, action.IsPermanent(err))
}

func emailAction(t *testing.T, msg any) *action.Action {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return &action.Action{ID: "mail-1", Type: action.TypeSendEmail, Payload: data}
}

func TestEmailHandler_SendsValidMessage(t *testing.T) {
	sender := &mocks.EmailServiceMock{}
	h := actionhandlers.NewEmailHandler(sender)

	err := h.Handle(context.Background(), emailAction(t, ports.EmailMessage{To: "ops@example.com", Subject: "Report", Body: "ok"}))
	require.NoError(t, err)
	require.Len(t, sender.Sent, 1)
	assert.Equal(t, "ops@example.com", sender.Sent[0].To)
}

func TestEmailHandler_InvalidPayloadIsPermanent(t *testing.T) {
	sender := &mocks.EmailServiceMock{}
	h := actionhandlers.NewEmailHandler(sender)

	err := h.Handle(context.Background(), emailAction(t, map[string]string{"to": "not-an-address", "subject": "x"}))
	require.Error(t, err)
	assert.True(t, action.IsPermanent(err))

	err = h.Handle(context.Background(), &action.Action{ID: "x", Type: action.TypeSendEmail, Payload: json.RawMessage(`[1,2`)})
	assert.True(t, action.IsPermanent(err))
	assert.Empty(t, sender.Sent)
}

func TestEmailHandler_ProviderErrors(t *testing.T) {
	msg := ports.EmailMessage{To: "ops@example.com", Subject: "Report"}

	rejecting := &mocks.EmailServiceMock{SendFn: func(context.Context, *ports.EmailMessage) error {
		return fmt.Errorf("%w: status 400", email.ErrRejected)
	}}
	err := actionhandlers.NewEmailHandler(rejecting).Handle(context.Background(), emailAction(t, msg))
	assert.True(t, action.IsPermanent(err))

	flaky := &mocks.EmailServiceMock{SendFn: func(context.Context, *ports.EmailMessage) error {
		return errors.New("sendgrid returned 503")
	}}
	err = actionhandlers.NewEmailHandler(flaky).Handle(context.Background(), emailAction(t, msg))
	require.Error(t, err)
	assert.False(t, action.IsPermanent(err))
}
