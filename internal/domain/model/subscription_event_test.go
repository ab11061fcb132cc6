// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
)

func TestSubscriptionAction_Subject(t *testing.T) {
	assert.Equal(t, constants.SubscriberSubscribedSubject, ActionSubscribed.Subject())
	assert.Equal(t, constants.SubscriberUnsubscribedSubject, ActionUnsubscribed.Subject())
	assert.Equal(t, constants.SubscriberConfirmationRequestedSubject, ActionConfirmationRequested.Subject())
	assert.Empty(t, SubscriptionAction("other").Subject())
}

func TestNewSubscriptionEvent(t *testing.T) {
	ctx := context.WithValue(context.Background(), constants.PrincipalContextID, "svc-account")
	ctx = context.WithValue(ctx, constants.RequestIDContextKey, "req-1")

	event := NewSubscriptionEvent(ctx, ActionSubscribed, "dev@example.com", []string{"a@example.com"})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, ActionSubscribed, event.Action)
	assert.Equal(t, "dev@example.com", event.MailingList)
	assert.Equal(t, []string{"a@example.com"}, event.Subscribers)
	assert.Equal(t, "svc-account", event.Headers[constants.XOnBehalfOfHeader])
	assert.Equal(t, "req-1", event.Headers[constants.RequestIDHeader])
	assert.False(t, event.OccurredAt.IsZero())
}

func TestNewSubscriptionEvent_NoContextValues(t *testing.T) {
	event := NewSubscriptionEvent(context.Background(), ActionUnsubscribed, "dev@example.com", nil)
	assert.Empty(t, event.Headers)
}
