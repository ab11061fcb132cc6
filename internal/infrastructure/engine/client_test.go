// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	errs "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:  srv.URL,
		APIToken: "secret",
		HTTP: httpclient.Config{
			Timeout:    2 * time.Second,
			MaxRetries: 2,
			RetryDelay: time.Millisecond,
		},
	})
	require.NoError(t, err)
	return c
}

func writeEnvelope(w http.ResponseWriter, status int, data any, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.NewOutcome(data, err))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	var v errs.Validation
	assert.True(t, errors.As(err, &v))

	_, err = NewClient(Config{BaseURL: "not a url"})
	assert.True(t, errors.As(err, &v))

	_, err = NewClient(Config{BaseURL: "http://engine.local", HTTP: httpclient.Config{MaxRetries: 50}})
	assert.True(t, errors.As(err, &v))

	_, err = NewClient(Config{BaseURL: "http://engine.local", HTTP: httpclient.DefaultConfig()})
	assert.NoError(t, err)
}

func TestClient_GetSubscribers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/lists/dev@example.com/subscribers", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-AUTH-TOKEN"))
		writeEnvelope(w, http.StatusOK, map[string][]string{
			"normal": {"carol@example.com"},
			"digest": {"alice@example.com"},
		}, nil)
	})

	got, err := c.GetSubscribers(context.Background(), "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"carol@example.com"}, got[model.ModeNormal])
	assert.Equal(t, []string{"alice@example.com"}, got[model.ModeDigest])
	assert.Equal(t, []string{}, got[model.ModeNoMail])
}

func TestClient_EngineMessagesMapToTypedErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		err     error
		check   func(error) bool
		wantMsg string
	}{
		{
			name:    "missing list",
			status:  http.StatusOK,
			err:     errs.NewNotFound("NO_SUCH_ACCOUNT"),
			check:   func(err error) bool { var e errs.NotFound; return errors.As(err, &e) },
			wantMsg: "NO_SUCH_ACCOUNT",
		},
		{
			name:    "missing list with error status",
			status:  http.StatusNotFound,
			err:     errs.NewNotFound("NO_SUCH_ACCOUNT"),
			check:   func(err error) bool { var e errs.NotFound; return errors.As(err, &e) },
			wantMsg: "NO_SUCH_ACCOUNT",
		},
		{
			name:    "invalid subscriber",
			status:  http.StatusOK,
			err:     errs.NewValidation("INVALID_SUBSCRIBER"),
			check:   func(err error) bool { var e errs.Validation; return errors.As(err, &e) },
			wantMsg: "INVALID_SUBSCRIBER",
		},
		{
			name:    "unknown message kept verbatim",
			status:  http.StatusOK,
			err:     errors.New("LIST_LOCKED"),
			check:   func(err error) bool { var e errs.Unexpected; return errors.As(err, &e) },
			wantMsg: "LIST_LOCKED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.status, nil, tt.err)
			})

			_, err := c.GetSubscribers(context.Background(), "dev@example.com")
			require.Error(t, err)
			assert.True(t, tt.check(err))
			assert.Equal(t, tt.wantMsg, errs.Message(err))
		})
	}
}

func TestClient_ServerErrorIsRetriedThenUnavailable(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.ListExistingMailLists(context.Background(), nil)
	var su errs.ServiceUnavailable
	require.True(t, errors.As(err, &su))
	assert.Equal(t, "BACKEND_UNAVAILABLE", errs.Message(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_AddSubscribersBodyReplayedOnRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req addRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, []string{"a@example.com"}, req.Subscribers)
		assert.Equal(t, "digest", req.Subscription)
		assert.True(t, req.RequireConfirm)

		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeEnvelope(w, http.StatusOK, nil, nil)
	})

	err := c.AddSubscribers(context.Background(), "dev@example.com", []string{"a@example.com"}, model.ModeDigest, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_RemoveAllSubscribers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		var req removeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.All)
		assert.Empty(t, req.Subscribers)
		writeEnvelope(w, http.StatusOK, nil, nil)
	})

	require.NoError(t, c.RemoveAllSubscribers(context.Background(), "dev@example.com"))
}

func TestClient_HasSubscriber(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lists/dev@example.com/subscribers/alice@example.com", r.URL.Path)
		writeEnvelope(w, http.StatusOK, model.MembershipCheck{Subscribed: true, Subscription: model.ModeDigest}, nil)
	})

	ok, mode, err := c.HasSubscriber(context.Background(), "dev@example.com", "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.ModeDigest, mode)
}

func TestClient_ListExistingMailLists_DomainFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "example.com,example.org", r.URL.Query().Get("domains"))
		writeEnvelope(w, http.StatusOK, []string{"dev@example.com"}, nil)
	})

	got, err := c.ListExistingMailLists(context.Background(), []string{"example.com", "example.org"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev@example.com"}, got)
}

func TestClient_ConfirmSubscriber(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/lists/dev@example.com/subscribers/a@example.com/confirm", r.URL.Path)
		writeEnvelope(w, http.StatusOK, map[string]string{"subscription": "nomail"}, nil)
	})

	mode, err := c.ConfirmSubscriber(context.Background(), "dev@example.com", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.ModeNoMail, mode)
}

func TestClient_IsReady(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		writeEnvelope(w, http.StatusOK, nil, nil)
	})
	assert.NoError(t, c.IsReady(context.Background()))
}
