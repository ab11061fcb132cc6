// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package httpclient is a small JSON-oriented HTTP client with retries and
// request middleware.
package httpclient

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RoundTripper is a request middleware. Implementations must call next to
// continue the chain.
type RoundTripper interface {
	RoundTrip(req *http.Request, next func(*http.Request) (*http.Response, error)) (*http.Response, error)
}

// Client sends requests with retry and a RoundTripper chain.
type Client struct {
	config        Config
	httpClient    *http.Client
	roundTrippers []RoundTripper
}

// Request describes an outgoing request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    io.Reader
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// StatusError is returned for responses with a 4xx or 5xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// Do executes req, retrying temporary failures up to MaxRetries times.
// A body implementing io.Seeker is rewound before every attempt, any other
// body is sent once.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		response, err := c.doRequest(ctx, req)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return response, err
		}
		slog.DebugContext(ctx, "http request attempt failed",
			"method", req.Method,
			"attempt", attempt+1,
			"error", err,
		)
	}

	slog.ErrorContext(ctx, "http request failed", "method", req.Method, "error", lastErr)
	return nil, lastErr
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.config.RetryDelay
	if !c.config.RetryBackoff {
		return delay
	}

	for i := 1; i < attempt && delay < c.config.MaxDelay/2; i++ {
		delay *= 2
	}
	if delay > c.config.MaxDelay {
		delay = c.config.MaxDelay
	}

	// up to 25% jitter
	if maxJitter := int64(delay / 4); maxJitter > 0 {
		if j, err := rand.Int(rand.Reader, big.NewInt(maxJitter)); err == nil {
			delay += time.Duration(j.Int64())
		}
	}
	return delay
}

func (c *Client) doRequest(ctx context.Context, reqConfig Request) (*Response, error) {
	if seeker, ok := reqConfig.Body.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, reqConfig.Method, reqConfig.URL, reqConfig.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	for key, value := range reqConfig.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.chain(httpReq, 0)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return response, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return response, nil
}

func shouldRetry(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// Request is shorthand for Do.
func (c *Client) Request(ctx context.Context, verb, url string, body io.Reader, headers map[string]string) (*Response, error) {
	return c.Do(ctx, Request{
		Method:  verb,
		URL:     url,
		Headers: headers,
		Body:    body,
	})
}

func (c *Client) chain(req *http.Request, index int) (*http.Response, error) {
	if index >= len(c.roundTrippers) {
		return c.httpClient.Do(req)
	}
	next := func(req *http.Request) (*http.Response, error) {
		return c.chain(req, index+1)
	}
	return c.roundTrippers[index].RoundTrip(req, next)
}

// AddRoundTripper appends rt to the middleware chain. Not safe for
// concurrent use; call it before the first request.
func (c *Client) AddRoundTripper(rt RoundTripper) {
	c.roundTrippers = append(c.roundTrippers, rt)
}

// NewClient creates a client whose transport is traced with otelhttp.
func NewClient(config Config) *Client {
	if config.MaxDelay == 0 {
		config.MaxDelay = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}
