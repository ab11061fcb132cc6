// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service implements the HTTP endpoints of the subscriber API and
// wires their dependencies.
package service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/redaction"
)

// Path parameters of the API routes.
const (
	PathParamMailingList = "mail"
	PathParamSubscriber  = "subscriber"
)

type readinessChecker interface {
	IsReady(ctx context.Context) error
}

// SubscriberAPI serves the subscriber endpoints.
type SubscriberAPI struct {
	subscribers service.SubscriberOrchestrator
	readiness   readinessChecker
}

// NewSubscriberAPI returns the API implementation.
func NewSubscriberAPI(subscribers service.SubscriberOrchestrator, readiness readinessChecker) *SubscriberAPI {
	return &SubscriberAPI{
		subscribers: subscribers,
		readiness:   readiness,
	}
}

// Livez implements the livez endpoint for liveness probes.
func (a *SubscriberAPI) Livez(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

// Readyz implements the readyz endpoint for readiness probes.
func (a *SubscriberAPI) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := a.readiness.IsReady(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "service not ready", "error", err)
		writeText(w, http.StatusServiceUnavailable, "NOT READY\n")
		return
	}
	writeText(w, http.StatusOK, "OK\n")
}

// GetSubscribers returns the list's subscribers grouped by subscription
// mode, or as a flat address list when email_only is present.
func (a *SubscriberAPI) GetSubscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list := chi.URLParam(r, PathParamMailingList)
	if err := r.ParseForm(); err != nil {
		writeOutcome(w, r, "get-subscribers", nil, invalidData(err))
		return
	}
	emailOnly := r.Form.Has(constants.ParamEmailOnly)

	slog.DebugContext(ctx, "subscriberAPI.get-subscribers", "mailing_list", list, "email_only", emailOnly)

	if emailOnly {
		addresses, err := a.subscribers.GetSubscriberAddresses(ctx, list)
		writeOutcome(w, r, "get-subscribers", addresses, err)
		return
	}

	grouped, err := a.subscribers.GetSubscribers(ctx, list)
	writeOutcome(w, r, "get-subscribers", grouped, err)
}

// UpdateSubscribers adds and/or removes subscribers of one list.
func (a *SubscriberAPI) UpdateSubscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list := chi.URLParam(r, PathParamMailingList)
	if err := r.ParseForm(); err != nil {
		writeOutcome(w, r, "update-subscribers", nil, invalidData(err))
		return
	}
	req := parseUpdateRequest(r.Form)

	slog.DebugContext(ctx, "subscriberAPI.update-subscribers",
		"mailing_list", list,
		"add", req.Add != nil,
		"remove", req.Remove != nil,
		"require_confirm", req.RequireConfirm,
	)

	err := a.subscribers.UpdateSubscribers(ctx, list, req)
	writeOutcome(w, r, "update-subscribers", nil, err)
}

// HasSubscriber checks one subscriber against one list.
func (a *SubscriberAPI) HasSubscriber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list := chi.URLParam(r, PathParamMailingList)
	subscriber := chi.URLParam(r, PathParamSubscriber)

	slog.DebugContext(ctx, "subscriberAPI.has-subscriber",
		"mailing_list", list,
		"subscriber", redaction.RedactEmail(subscriber),
	)

	check, err := a.subscribers.HasSubscriber(ctx, list, subscriber)
	writeOutcome(w, r, "has-subscriber", check, err)
}

// SubscribedLists returns the lists the subscriber belongs to.
func (a *SubscriberAPI) SubscribedLists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriber := chi.URLParam(r, PathParamSubscriber)
	if err := r.ParseForm(); err != nil {
		writeOutcome(w, r, "subscribed-lists", nil, invalidData(err))
		return
	}
	query := parseSubscribedListsQuery(r.Form)

	slog.DebugContext(ctx, "subscriberAPI.subscribed-lists",
		"subscriber", redaction.RedactEmail(subscriber),
		"query_all_lists", query.QueryAllLists,
	)

	memberships, err := a.subscribers.SubscribedLists(ctx, subscriber, query.QueryAllLists)
	if err != nil {
		writeOutcome(w, r, "subscribed-lists", nil, err)
		return
	}

	if query.EmailOnly {
		writeOutcome(w, r, "subscribed-lists", listAddresses(memberships), nil)
		return
	}
	if memberships == nil {
		memberships = []model.ListMembership{}
	}
	writeOutcome(w, r, "subscribed-lists", memberships, nil)
}

// Subscribe adds one subscriber to many lists.
func (a *SubscriberAPI) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriber := chi.URLParam(r, PathParamSubscriber)
	if err := r.ParseForm(); err != nil {
		writeOutcome(w, r, "subscribe", nil, invalidData(err))
		return
	}
	req := parseSubscribeRequest(r.Form)

	slog.DebugContext(ctx, "subscriberAPI.subscribe",
		"subscriber", redaction.RedactEmail(subscriber),
		"require_confirm", req.RequireConfirm,
	)

	err := a.subscribers.SubscribeToLists(ctx, subscriber, req.Lists, req.Mode, req.RequireConfirm)
	writeOutcome(w, r, "subscribe", nil, err)
}

func listAddresses(memberships []model.ListMembership) []string {
	addresses := make([]string, 0, len(memberships))
	for _, m := range memberships {
		addresses = append(addresses, m.Mail)
	}
	return addresses
}
