// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/cmd/subscriber-api/service"
	internalService "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
)

const confirmationMessageTimeout = 30 * time.Second

// handleConfirmationSync subscribes to confirmation events and activates
// the pending subscriptions they name.
func handleConfirmationSync(ctx context.Context, cfg service.Config, wg *sync.WaitGroup) error {
	slog.InfoContext(ctx, "starting confirmation sync")

	syncService := internalService.NewConfirmationSyncService(
		service.SubscriptionConfirmer(ctx, cfg),
		service.MessagePublisher(ctx, cfg),
	)
	natsClient := service.GetNATSClient(ctx, cfg)

	sub, err := natsClient.QueueSubscribe(
		constants.SubscriberConfirmedSubject,
		constants.SubscriberAPIQueue,
		func(msg *nats.Msg) {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "rejecting message - service shutting down", "subject", msg.Subject)
				if msg.Reply != "" {
					if nakErr := msg.Nak(); nakErr != nil {
						slog.ErrorContext(ctx, "failed to nak message during shutdown", "error", nakErr)
					}
				}
				return
			default:
			}

			// not derived from ctx so in-flight confirmations finish during shutdown
			msgCtx, cancel := context.WithTimeout(context.Background(), confirmationMessageTimeout)
			defer cancel()

			if handleErr := syncService.HandleMessage(msgCtx, msg); handleErr != nil {
				slog.ErrorContext(msgCtx, "failed to process confirmation event",
					"error", handleErr,
					"subject", msg.Subject,
					"retry", errs.IsTemporary(handleErr),
				)
				if msg.Reply == "" {
					return
				}
				// redelivery cannot fix a malformed event or an unknown subscription
				if !errs.IsTemporary(handleErr) {
					if ackErr := msg.Ack(); ackErr != nil {
						slog.ErrorContext(msgCtx, "failed to ack message", "error", ackErr)
					}
					return
				}
				if nakErr := msg.Nak(); nakErr != nil {
					slog.ErrorContext(msgCtx, "failed to nak message", "error", nakErr)
				}
				return
			}
			if msg.Reply != "" {
				if ackErr := msg.Ack(); ackErr != nil {
					slog.ErrorContext(msgCtx, "failed to ack message", "error", ackErr)
				}
			}
		},
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", constants.SubscriberConfirmedSubject, err)
	}
	slog.InfoContext(ctx, "subscribed to confirmation events",
		"subject", constants.SubscriberConfirmedSubject,
		"queue", constants.SubscriberAPIQueue,
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		slog.InfoContext(ctx, "shutting down confirmation sync")
		if err := sub.Drain(); err != nil {
			slog.ErrorContext(ctx, "failed to drain confirmation subscription", "error", err)
		}
	}()

	return nil
}
