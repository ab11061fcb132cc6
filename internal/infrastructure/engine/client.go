// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package engine implements the membership backend as a client of a remote
// mailing-list engine REST API.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/httpclient"
)

var (
	_ port.MembershipBackend     = (*Client)(nil)
	_ port.SubscriptionConfirmer = (*Client)(nil)
)

// Config holds the engine endpoint and credentials.
type Config struct {
	BaseURL        string `validate:"required,url"`
	APIToken       string
	APITokenHeader string
	HTTP           httpclient.Config
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Client talks to the engine over HTTP. Every response carries the
// {"_success", "_data", "_msg"} envelope.
type Client struct {
	baseURL string
	http    *httpclient.Client
}

type addRequest struct {
	Subscribers    []string `json:"subscribers"`
	Subscription   string   `json:"subscription"`
	RequireConfirm bool     `json:"require_confirm"`
}

type removeRequest struct {
	Subscribers []string `json:"subscribers,omitempty"`
	All         bool     `json:"all,omitempty"`
}

// NewClient creates an engine client. The API token, when set, is added to
// every request by a round tripper.
func NewClient(cfg Config) (*Client, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, errs.NewValidation("invalid engine configuration", err)
	}
	if cfg.APITokenHeader == "" {
		cfg.APITokenHeader = constants.DefaultAPITokenHeader
	}

	hc := httpclient.NewClient(cfg.HTTP)
	hc.AddRoundTripper(httpclient.HeaderRoundTripper{
		Name:  cfg.APITokenHeader,
		Value: cfg.APIToken,
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
	}, nil
}

func (c *Client) listURL(list string, parts ...string) string {
	u := c.baseURL + "/lists/" + url.PathEscape(list)
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// call sends a request and decodes the envelope's data into out, which may be nil.
func (c *Client) call(ctx context.Context, method, target string, payload, out any) error {
	headers := map[string]string{}
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return errs.NewUnexpected("failed to encode engine request", err)
		}
		body = bytes.NewReader(b)
		headers["Content-Type"] = "application/json"
	}

	req := httpclient.Request{Method: method, URL: target, Headers: headers}
	if body != nil {
		req.Body = body
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return c.mapTransportError(ctx, resp, err)
	}

	var envelope model.Outcome
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return errs.NewServiceUnavailable(constants.ErrCodeBackendUnavailable,
			fmt.Errorf("malformed engine response: %w", err))
	}
	if !envelope.Success {
		return fromMessage(envelope.Message)
	}
	if out == nil || envelope.Data == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data.(json.RawMessage), out); err != nil {
		return errs.NewServiceUnavailable(constants.ErrCodeBackendUnavailable,
			fmt.Errorf("malformed engine data: %w", err))
	}
	return nil
}

// mapTransportError turns a failed exchange into a typed error. Error
// statuses that still carry an envelope keep the engine's message.
func (c *Client) mapTransportError(ctx context.Context, resp *httpclient.Response, err error) error {
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		slog.ErrorContext(ctx, "engine request failed", "error", err)
		return errs.NewServiceUnavailable(constants.ErrCodeBackendUnavailable, err)
	}

	if resp != nil {
		var envelope model.Outcome
		if json.Unmarshal(resp.Body, &envelope) == nil && !envelope.Success && envelope.Message != "" {
			return fromMessage(envelope.Message)
		}
	}

	switch statusErr.StatusCode {
	case http.StatusNotFound:
		return errs.NewNotFound(constants.ErrCodeNoSuchAccount, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		slog.ErrorContext(ctx, "engine rejected credentials", "status", statusErr.StatusCode)
		return errs.NewServiceUnavailable(constants.ErrCodeBackendUnavailable, err)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errs.NewValidation(constants.ErrCodeInvalidData, err)
	default:
		return errs.NewServiceUnavailable(constants.ErrCodeBackendUnavailable, err)
	}
}

// fromMessage maps an engine failure message to the matching error type,
// keeping the message verbatim.
func fromMessage(msg string) error {
	switch msg {
	case constants.ErrCodeNoSuchAccount:
		return errs.NewNotFound(msg)
	case constants.ErrCodeInvalidSubscriber, constants.ErrCodeInvalidData:
		return errs.NewValidation(msg)
	case constants.ErrCodeBackendUnavailable:
		return errs.NewServiceUnavailable(msg)
	case "":
		return errs.NewUnexpected("engine reported failure without a message")
	default:
		return errs.NewUnexpected(msg)
	}
}

// GetSubscribers implements port.MembershipReader.
func (c *Client) GetSubscribers(ctx context.Context, list string) (map[model.SubscriptionMode][]string, error) {
	var data map[string][]string
	if err := c.call(ctx, http.MethodGet, c.listURL(list, "subscribers"), nil, &data); err != nil {
		return nil, err
	}

	result := make(map[model.SubscriptionMode][]string, len(model.SubscriptionModes()))
	for _, mode := range model.SubscriptionModes() {
		result[mode] = []string{}
	}
	for raw, subs := range data {
		mode := model.ResolveMode(raw)
		result[mode] = append(result[mode], subs...)
	}
	return result, nil
}

// HasSubscriber implements port.MembershipReader.
func (c *Client) HasSubscriber(ctx context.Context, list, subscriber string) (bool, model.SubscriptionMode, error) {
	var data model.MembershipCheck
	if err := c.call(ctx, http.MethodGet, c.listURL(list, "subscribers", subscriber), nil, &data); err != nil {
		return false, "", err
	}
	if !data.Subscribed {
		return false, "", nil
	}
	return true, model.ResolveMode(string(data.Subscription)), nil
}

// ListExistingMailLists implements port.MembershipReader.
func (c *Client) ListExistingMailLists(ctx context.Context, domains []string) ([]string, error) {
	target := c.baseURL + "/lists"
	if domains != nil {
		target += "?" + url.Values{"domains": {strings.Join(domains, ",")}}.Encode()
	}

	lists := []string{}
	if err := c.call(ctx, http.MethodGet, target, nil, &lists); err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []string{}
	}
	return lists, nil
}

// AddSubscribers implements port.MembershipWriter.
func (c *Client) AddSubscribers(ctx context.Context, list string, subscribers []string, mode model.SubscriptionMode, requireConfirm bool) error {
	if subscribers == nil {
		subscribers = []string{}
	}
	return c.call(ctx, http.MethodPost, c.listURL(list, "subscribers"), addRequest{
		Subscribers:    subscribers,
		Subscription:   string(mode),
		RequireConfirm: requireConfirm,
	}, nil)
}

// RemoveSubscribers implements port.MembershipWriter.
func (c *Client) RemoveSubscribers(ctx context.Context, list string, subscribers []string) error {
	if subscribers == nil {
		subscribers = []string{}
	}
	return c.call(ctx, http.MethodDelete, c.listURL(list, "subscribers"), removeRequest{Subscribers: subscribers}, nil)
}

// RemoveAllSubscribers implements port.MembershipWriter.
func (c *Client) RemoveAllSubscribers(ctx context.Context, list string) error {
	return c.call(ctx, http.MethodDelete, c.listURL(list, "subscribers"), removeRequest{All: true}, nil)
}

// ConfirmSubscriber implements port.SubscriptionConfirmer.
func (c *Client) ConfirmSubscriber(ctx context.Context, list, subscriber string) (model.SubscriptionMode, error) {
	var data struct {
		Subscription string `json:"subscription"`
	}
	if err := c.call(ctx, http.MethodPost, c.listURL(list, "subscribers", subscriber, "confirm"), nil, &data); err != nil {
		return "", err
	}
	return model.ResolveMode(data.Subscription), nil
}

// IsReady checks the engine's health endpoint.
func (c *Client) IsReady(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, c.baseURL+"/health", nil, nil)
}
