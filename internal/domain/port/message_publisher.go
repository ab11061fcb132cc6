// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
)

// MessagePublisher announces membership changes to downstream services.
type MessagePublisher interface {
	// Subscription publishes event on the subject of its action.
	Subscription(ctx context.Context, event *model.SubscriptionEvent) error
}
