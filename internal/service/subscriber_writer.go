// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/address"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/redaction"
)

// AddSubscribers enrolls the valid addresses of rawSubscribers in list.
// The cleaned set is sent to the backend even when empty.
func (o *subscriberOrchestrator) AddSubscribers(ctx context.Context, list, rawSubscribers, rawMode string, requireConfirm bool) error {
	o.requireBackend()
	list = normalizeList(list)
	subscribers := o.cleanSubscribers(rawSubscribers)
	mode := model.ResolveMode(rawMode)

	slog.DebugContext(ctx, "executing add subscribers use case",
		"mailing_list", list,
		"count", len(subscribers),
		"subscription", mode,
		"require_confirm", requireConfirm,
	)

	if err := o.backend.AddSubscribers(ctx, list, subscribers, mode, requireConfirm); err != nil {
		slog.ErrorContext(ctx, "failed to add subscribers",
			"error", err,
			"mailing_list", list,
		)
		return err
	}

	slog.InfoContext(ctx, "subscribers added",
		"mailing_list", list,
		"count", len(subscribers),
		"subscription", mode,
	)

	o.publishAdded(ctx, list, subscribers, mode, requireConfirm)
	return nil
}

// RemoveSubscribers removes the valid addresses of rawSubscribers from list.
// The literal value ALL removes every subscriber.
func (o *subscriberOrchestrator) RemoveSubscribers(ctx context.Context, list, rawSubscribers string) error {
	o.requireBackend()
	list = normalizeList(list)

	if rawSubscribers == constants.RemoveAllSubscribers {
		slog.DebugContext(ctx, "executing remove all subscribers use case", "mailing_list", list)

		if err := o.backend.RemoveAllSubscribers(ctx, list); err != nil {
			slog.ErrorContext(ctx, "failed to remove all subscribers",
				"error", err,
				"mailing_list", list,
			)
			return err
		}

		slog.InfoContext(ctx, "all subscribers removed", "mailing_list", list)

		event := model.NewSubscriptionEvent(ctx, model.ActionUnsubscribed, list, nil)
		event.All = true
		o.publish(ctx, event)
		return nil
	}

	subscribers := o.cleanSubscribers(rawSubscribers)

	slog.DebugContext(ctx, "executing remove subscribers use case",
		"mailing_list", list,
		"count", len(subscribers),
	)

	if err := o.backend.RemoveSubscribers(ctx, list, subscribers); err != nil {
		slog.ErrorContext(ctx, "failed to remove subscribers",
			"error", err,
			"mailing_list", list,
		)
		return err
	}

	slog.InfoContext(ctx, "subscribers removed", "mailing_list", list, "count", len(subscribers))

	if len(subscribers) > 0 {
		o.publish(ctx, model.NewSubscriptionEvent(ctx, model.ActionUnsubscribed, list, subscribers))
	}
	return nil
}

// UpdateSubscribers runs the add stage and then the remove stage of req.
// The first failing stage aborts the update.
func (o *subscriberOrchestrator) UpdateSubscribers(ctx context.Context, list string, req UpdateRequest) error {
	if req.Add != nil {
		if err := o.AddSubscribers(ctx, list, *req.Add, req.Mode, req.RequireConfirm); err != nil {
			return err
		}
	}
	if req.Remove != nil {
		if err := o.RemoveSubscribers(ctx, list, *req.Remove); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeToLists adds one subscriber to each valid list in rawLists, in
// order. The first backend failure aborts the remaining lists.
func (o *subscriberOrchestrator) SubscribeToLists(ctx context.Context, subscriber, rawLists, rawMode string, requireConfirm bool) error {
	o.requireBackend()

	normalized, ok := address.Normalize(subscriber)
	if !ok {
		return errors.NewValidation(constants.ErrCodeInvalidSubscriber)
	}
	lists := address.SplitList(rawLists)
	mode := model.ResolveMode(rawMode)

	slog.DebugContext(ctx, "executing subscribe to lists use case",
		"subscriber", redaction.RedactEmail(normalized),
		"lists", len(lists),
		"subscription", mode,
		"require_confirm", requireConfirm,
	)

	subscribers := []string{normalized}
	for _, list := range lists {
		if err := o.backend.AddSubscribers(ctx, list, subscribers, mode, requireConfirm); err != nil {
			slog.ErrorContext(ctx, "failed to subscribe to list",
				"error", err,
				"mailing_list", list,
				"subscriber", redaction.RedactEmail(normalized),
			)
			return err
		}
		o.publishAdded(ctx, list, subscribers, mode, requireConfirm)
	}

	slog.InfoContext(ctx, "subscriber added to lists",
		"subscriber", redaction.RedactEmail(normalized),
		"lists", len(lists),
	)
	return nil
}

func (o *subscriberOrchestrator) publishAdded(ctx context.Context, list string, subscribers []string, mode model.SubscriptionMode, requireConfirm bool) {
	if len(subscribers) == 0 {
		return
	}
	action := model.ActionSubscribed
	if requireConfirm {
		action = model.ActionConfirmationRequested
	}
	event := model.NewSubscriptionEvent(ctx, action, list, subscribers)
	event.Subscription = mode
	o.publish(ctx, event)
}

// publish never fails the caller; the membership change already happened.
func (o *subscriberOrchestrator) publish(ctx context.Context, event *model.SubscriptionEvent) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Subscription(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish subscription event",
			"error", err,
			"action", event.Action,
			"mailing_list", event.MailingList,
		)
	}
}
