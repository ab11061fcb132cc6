// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
)

// MembershipReader answers membership questions about mailing lists.
type MembershipReader interface {
	// GetSubscribers returns the active subscribers of list grouped by mode.
	GetSubscribers(ctx context.Context, list string) (map[model.SubscriptionMode][]string, error)

	// HasSubscriber reports whether subscriber is an active member of list
	// and, if so, with which mode.
	HasSubscriber(ctx context.Context, list, subscriber string) (bool, model.SubscriptionMode, error)

	// ListExistingMailLists returns the addresses of the lists under the
	// given domains, or of every list when domains is nil.
	ListExistingMailLists(ctx context.Context, domains []string) ([]string, error)
}

// MembershipWriter changes list membership.
type MembershipWriter interface {
	// AddSubscribers enrolls subscribers with mode. When requireConfirm is
	// set the records stay pending until confirmed.
	AddSubscribers(ctx context.Context, list string, subscribers []string, mode model.SubscriptionMode, requireConfirm bool) error

	// RemoveSubscribers removes subscribers; absent ones are ignored.
	RemoveSubscribers(ctx context.Context, list string, subscribers []string) error

	// RemoveAllSubscribers empties list in every mode.
	RemoveAllSubscribers(ctx context.Context, list string) error
}

// MembershipBackend is the contract every mailing-list engine adapter
// implements. A list that does not exist yields errors.NotFound with the
// NO_SUCH_ACCOUNT message. An empty subscriber set is a successful no-op.
type MembershipBackend interface {
	MembershipReader
	MembershipWriter

	// IsReady reports whether the backend can serve requests.
	IsReady(ctx context.Context) error
}
