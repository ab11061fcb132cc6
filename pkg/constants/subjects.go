// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// NATS subject constants for subscription events
const (
	// SubscriberSubscribedSubject is published after subscribers were enrolled
	SubscriberSubscribedSubject = "lfx.mailing-list-subscriber.subscribed"

	// SubscriberUnsubscribedSubject is published after subscribers were removed
	SubscriberUnsubscribedSubject = "lfx.mailing-list-subscriber.unsubscribed"

	// SubscriberConfirmationRequestedSubject is published when enrollment waits on confirmation
	SubscriberConfirmationRequestedSubject = "lfx.mailing-list-subscriber.confirmation_requested"

	// SubscriberConfirmedSubject is consumed to activate pending subscriptions
	SubscriberConfirmedSubject = "lfx.mailing-list-subscriber.confirmed"
)
