// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"slices"
	"sort"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/address"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/redaction"
)

// GetSubscribers retrieves the active subscribers of list grouped by mode
func (o *subscriberOrchestrator) GetSubscribers(ctx context.Context, list string) (map[model.SubscriptionMode][]string, error) {
	o.requireBackend()
	list = normalizeList(list)

	slog.DebugContext(ctx, "executing get subscribers use case", "mailing_list", list)

	byMode, err := o.backend.GetSubscribers(ctx, list)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get subscribers",
			"error", err,
			"mailing_list", list,
		)
		return nil, err
	}

	result := make(map[model.SubscriptionMode][]string, len(model.SubscriptionModes()))
	for _, mode := range model.SubscriptionModes() {
		subscribers := byMode[mode]
		if subscribers == nil {
			subscribers = []string{}
		}
		result[mode] = subscribers
	}

	slog.DebugContext(ctx, "subscribers retrieved successfully",
		"mailing_list", list,
		"normal", len(result[model.ModeNormal]),
		"digest", len(result[model.ModeDigest]),
		"nomail", len(result[model.ModeNoMail]),
	)

	return result, nil
}

// GetSubscriberAddresses flattens GetSubscribers into a sorted set
func (o *subscriberOrchestrator) GetSubscriberAddresses(ctx context.Context, list string) ([]string, error) {
	byMode, err := o.GetSubscribers(ctx, list)
	if err != nil {
		return nil, err
	}

	all := []string{}
	for _, subscribers := range byMode {
		all = append(all, subscribers...)
	}
	sort.Strings(all)
	return slices.Compact(all), nil
}

// HasSubscriber checks whether subscriber is an active member of list
func (o *subscriberOrchestrator) HasSubscriber(ctx context.Context, list, subscriber string) (model.MembershipCheck, error) {
	o.requireBackend()
	list = normalizeList(list)

	normalized, ok := address.Normalize(subscriber)
	if !ok {
		// the backend cannot hold an invalid address, but a missing list
		// must still be reported
		normalized = normalizeList(subscriber)
	}

	found, mode, err := o.lookup(ctx, list, normalized)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check subscriber",
			"error", err,
			"mailing_list", list,
			"subscriber", redaction.RedactEmail(normalized),
		)
		return model.MembershipCheck{}, err
	}

	if !found {
		return model.MembershipCheck{Subscribed: false}, nil
	}
	return model.MembershipCheck{Subscribed: true, Subscription: mode}, nil
}

// SubscribedLists finds the lists subscriber belongs to. Candidates are the
// lists of the subscriber's domain, or every list when scopeAllLists is set.
// Membership checks run concurrently but results keep candidate order.
func (o *subscriberOrchestrator) SubscribedLists(ctx context.Context, subscriber string, scopeAllLists bool) ([]model.ListMembership, error) {
	o.requireBackend()

	normalized, ok := address.Normalize(subscriber)
	if !ok {
		slog.DebugContext(ctx, "invalid subscriber address, no lists to check")
		return []model.ListMembership{}, nil
	}

	var domains []string
	if !scopeAllLists {
		domains = []string{address.Domain(normalized)}
	}

	candidates, err := o.backend.ListExistingMailLists(ctx, domains)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list existing mailing lists",
			"error", err,
			"domains", domains,
		)
		return nil, err
	}
	if len(candidates) == 0 {
		return []model.ListMembership{}, nil
	}

	slog.DebugContext(ctx, "checking subscriber against candidate lists",
		"subscriber", redaction.RedactEmail(normalized),
		"candidates", len(candidates),
		"query_all_lists", scopeAllLists,
	)

	slots := make([]*model.ListMembership, len(candidates))
	checks := make([]func() error, len(candidates))
	for i, list := range candidates {
		checks[i] = func() error {
			found, mode, err := o.lookup(ctx, list, normalized)
			if err != nil {
				if isNoSuchAccount(err) {
					slog.DebugContext(ctx, "candidate list disappeared, skipping", "mailing_list", list)
					return nil
				}
				return err
			}
			if found {
				slots[i] = &model.ListMembership{Mail: list, Subscription: mode}
			}
			return nil
		}
	}

	workers := min(o.workers, len(candidates))
	if err := concurrent.NewWorkerPool(workers).Run(ctx, checks...); err != nil {
		slog.ErrorContext(ctx, "failed to check subscriber memberships",
			"error", err,
			"subscriber", redaction.RedactEmail(normalized),
		)
		return nil, err
	}

	memberships := []model.ListMembership{}
	for _, m := range slots {
		if m != nil {
			memberships = append(memberships, *m)
		}
	}
	return memberships, nil
}

func isNoSuchAccount(err error) bool {
	var notFound errors.NotFound
	return stderrors.As(err, &notFound) && notFound.Message() == constants.ErrCodeNoSuchAccount
}
