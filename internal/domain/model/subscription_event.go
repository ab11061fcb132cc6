// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
)

// SubscriptionAction names what happened to a set of subscribers.
type SubscriptionAction string

const (
	ActionSubscribed            SubscriptionAction = "subscribed"
	ActionUnsubscribed          SubscriptionAction = "unsubscribed"
	ActionConfirmationRequested SubscriptionAction = "confirmation_requested"
)

// Subject returns the NATS subject the action is published on.
func (a SubscriptionAction) Subject() string {
	switch a {
	case ActionSubscribed:
		return constants.SubscriberSubscribedSubject
	case ActionUnsubscribed:
		return constants.SubscriberUnsubscribedSubject
	case ActionConfirmationRequested:
		return constants.SubscriberConfirmationRequestedSubject
	}
	return ""
}

// SubscriptionEvent announces a membership change to downstream services.
type SubscriptionEvent struct {
	ID           string             `json:"id"`
	Action       SubscriptionAction `json:"action"`
	MailingList  string             `json:"mailing_list"`
	Subscribers  []string           `json:"subscribers,omitempty"`
	Subscription SubscriptionMode   `json:"subscription,omitempty"`
	// All is set when every subscriber of the list was removed.
	All        bool              `json:"all,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewSubscriptionEvent creates an event carrying the request ID and principal
// found in ctx.
func NewSubscriptionEvent(ctx context.Context, action SubscriptionAction, list string, subscribers []string) *SubscriptionEvent {
	headers := make(map[string]string)
	if principal, ok := ctx.Value(constants.PrincipalContextID).(string); ok && principal != "" {
		headers[constants.XOnBehalfOfHeader] = principal
	}
	if requestID, ok := ctx.Value(constants.RequestIDContextKey).(string); ok && requestID != "" {
		headers[constants.RequestIDHeader] = requestID
	}

	return &SubscriptionEvent{
		ID:          uuid.NewString(),
		Action:      action,
		MailingList: list,
		Subscribers: subscribers,
		Headers:     headers,
		OccurredAt:  time.Now().UTC(),
	}
}

// ConfirmationMessage is received when a subscriber confirms a pending
// subscription.
type ConfirmationMessage struct {
	MailingList string `json:"list"`
	Subscriber  string `json:"subscriber"`
}
