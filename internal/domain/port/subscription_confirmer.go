// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
)

// SubscriptionConfirmer activates subscriptions that were waiting on the
// subscriber's confirmation.
type SubscriptionConfirmer interface {
	// ConfirmSubscriber activates the pending record and returns its mode.
	// Confirming an already active record is a no-op success.
	ConfirmSubscriber(ctx context.Context, list, subscriber string) (model.SubscriptionMode, error)
}
