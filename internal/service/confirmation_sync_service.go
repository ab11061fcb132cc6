// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/address"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/redaction"
)

// ConfirmationSyncService activates pending subscriptions when the
// subscriber confirms them.
type ConfirmationSyncService struct {
	confirmer port.SubscriptionConfirmer
	publisher port.MessagePublisher
}

// NewConfirmationSyncService creates the service. publisher may be nil.
func NewConfirmationSyncService(confirmer port.SubscriptionConfirmer, publisher port.MessagePublisher) *ConfirmationSyncService {
	if confirmer == nil {
		panic("subscription confirmer dependency is required but was not provided")
	}
	return &ConfirmationSyncService{
		confirmer: confirmer,
		publisher: publisher,
	}
}

// HandleMessage processes one message of the confirmed subject.
func (s *ConfirmationSyncService) HandleMessage(ctx context.Context, msg *nats.Msg) error {
	if msg.Subject != constants.SubscriberConfirmedSubject {
		slog.WarnContext(ctx, "unknown confirmation event subject", "subject", msg.Subject)
		return fmt.Errorf("unknown confirmation event subject: %s", msg.Subject)
	}

	var confirmation model.ConfirmationMessage
	if err := json.Unmarshal(msg.Data, &confirmation); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal confirmation event", "error", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	list := normalizeList(confirmation.MailingList)
	subscriber, ok := address.Normalize(confirmation.Subscriber)
	if !ok || list == "" {
		return fmt.Errorf("invalid confirmation event for list %q", list)
	}

	mode, err := s.confirmer.ConfirmSubscriber(ctx, list, subscriber)
	if err != nil {
		slog.ErrorContext(ctx, "failed to confirm subscriber",
			"error", err,
			"mailing_list", list,
			"subscriber", redaction.RedactEmail(subscriber),
		)
		return err
	}

	slog.InfoContext(ctx, "subscription confirmed",
		"mailing_list", list,
		"subscriber", redaction.RedactEmail(subscriber),
		"subscription", mode,
	)

	if s.publisher != nil {
		event := model.NewSubscriptionEvent(ctx, model.ActionSubscribed, list, []string{subscriber})
		event.Subscription = mode
		if err := s.publisher.Subscription(ctx, event); err != nil {
			slog.WarnContext(ctx, "failed to publish subscription event", "error", err, "mailing_list", list)
		}
	}
	return nil
}
