// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) Config {
	return Config{
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 2, config.MaxRetries)
	assert.Equal(t, time.Second, config.RetryDelay)
	assert.True(t, config.RetryBackoff)
	assert.Equal(t, 30*time.Second, config.MaxDelay)
}

func TestNewClient_DefaultMaxDelay(t *testing.T) {
	client := NewClient(Config{Timeout: time.Second})
	assert.Equal(t, 30*time.Second, client.config.MaxDelay)
}

func TestClient_Request(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantStatus int
	}{
		{name: "ok", status: http.StatusOK, body: `{"_success":true}`, wantStatus: http.StatusOK},
		{name: "not found is returned without retry", status: http.StatusNotFound, body: "missing", wantErr: true, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp, err := NewClient(fastConfig(2)).Request(context.Background(), http.MethodGet, server.URL, nil, nil)
			if tt.wantErr {
				require.Error(t, err)
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, tt.wantStatus, statusErr.StatusCode)
				assert.Equal(t, int32(1), calls.Load())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.body, string(resp.Body))
		})
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := NewClient(fastConfig(3)).Request(context.Background(), http.MethodGet, server.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(fastConfig(2)).Request(context.Background(), http.MethodGet, server.URL, nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "lists=a%40b.com", string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := NewClient(fastConfig(0)).Request(context.Background(), http.MethodPost, server.URL,
		strings.NewReader("lists=a%40b.com"),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	require.NoError(t, err)
}

func TestClient_BackoffIsCapped(t *testing.T) {
	client := NewClient(Config{
		RetryDelay:   100 * time.Millisecond,
		RetryBackoff: true,
		MaxDelay:     300 * time.Millisecond,
	})

	for attempt := 1; attempt <= 6; attempt++ {
		delay := client.backoff(attempt)
		assert.GreaterOrEqual(t, delay, 100*time.Millisecond)
		// MaxDelay plus 25% jitter
		assert.LessOrEqual(t, delay, 375*time.Millisecond)
	}
}

type recordingRoundTripper struct {
	called atomic.Int32
}

func (r *recordingRoundTripper) RoundTrip(req *http.Request, next func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	r.called.Add(1)
	req.Header.Set("X-Recorded", "yes")
	return next(req)
}

func TestClient_RoundTripperChain(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yes", r.Header.Get("X-Recorded"))
		assert.Equal(t, "secret", r.Header.Get("X-API-AUTH-TOKEN"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	recorder := &recordingRoundTripper{}
	client := NewClient(fastConfig(1))
	client.AddRoundTripper(recorder)
	client.AddRoundTripper(HeaderRoundTripper{Name: "X-API-AUTH-TOKEN", Value: "secret"})

	_, err := client.Request(context.Background(), http.MethodGet, server.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), recorder.called.Load(), "middleware runs on every attempt")
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &StatusError{StatusCode: 500}, true},
		{"rate limited", &StatusError{StatusCode: 429}, true},
		{"bad request", &StatusError{StatusCode: 400}, false},
		{"cancelled", context.Canceled, false},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(tt.err))
		})
	}
}
