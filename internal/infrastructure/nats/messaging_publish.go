// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
)

type eventPublisher struct {
	client *Client
}

// NewMessagePublisher returns a publisher that sends subscription events as
// core NATS messages on the subject of their action.
func NewMessagePublisher(client *Client) port.MessagePublisher {
	return &eventPublisher{client: client}
}

// eventMsg encodes event and carries its headers. The event ID doubles as
// Nats-Msg-Id so a JetStream stream on the subject deduplicates redeliveries.
func eventMsg(subject string, event *model.SubscriptionEvent) (*nats.Msg, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range event.Headers {
		msg.Header.Set(k, v)
	}
	msg.Header.Set(nats.MsgIdHdr, event.ID)
	msg.Header.Set("X-Source-Service", constants.ServiceName)
	return msg, nil
}

func (p *eventPublisher) Subscription(ctx context.Context, event *model.SubscriptionEvent) error {
	subject := event.Action.Subject()
	if subject == "" {
		return errors.NewValidation("unknown subscription action: " + string(event.Action))
	}
	if err := p.client.IsReady(ctx); err != nil {
		return err
	}

	msg, err := eventMsg(subject, event)
	if err != nil {
		return errors.NewUnexpected("failed to encode subscription event", err)
	}
	if err := p.client.conn.PublishMsg(msg); err != nil {
		slog.ErrorContext(ctx, "unable to publish subscription event", "subject", subject, "error", err)
		return errors.NewServiceUnavailable("failed to publish subscription event", err)
	}

	slog.DebugContext(ctx, "published subscription event",
		"subject", subject,
		"event_id", event.ID,
		"bytes", len(msg.Data),
	)
	return nil
}
