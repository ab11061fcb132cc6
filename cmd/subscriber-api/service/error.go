// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	lfxerrors "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
)

func invalidData(err error) error {
	return lfxerrors.NewValidation(constants.ErrCodeInvalidData, err)
}

// logError records a failed request at a level matching the error type.
// Client-side failures are expected traffic; everything else is logged as an error.
func logError(ctx context.Context, operation string, err error) {
	var (
		validation lfxerrors.Validation
		notFound   lfxerrors.NotFound
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notFound):
		slog.WarnContext(ctx, "request rejected", "operation", operation, "error", err)
	default:
		slog.ErrorContext(ctx, "request failed", "operation", operation, "error", err)
	}
}
