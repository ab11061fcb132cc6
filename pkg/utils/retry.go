// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package utils provides retry and tracing helpers shared by the subscriber service.
package utils

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig controls RetryWithExponentialBackoff.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Retryable reports whether an error is worth another attempt.
	// A nil Retryable retries every error.
	Retryable func(error) bool
}

// NewRetryConfig creates a RetryConfig that retries every error.
func NewRetryConfig(maxAttempts int, baseDelay, maxDelay time.Duration) RetryConfig {
	return RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}
}

// WithRetryable returns a copy of the config limited to errors accepted by fn.
func (c RetryConfig) WithRetryable(fn func(error) bool) RetryConfig {
	c.Retryable = fn
	return c
}

func (c RetryConfig) delay(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt-1)) * c.BaseDelay
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// RetryWithExponentialBackoff calls fn until it succeeds, the attempts run
// out, or fn returns an error the config does not consider retryable.
// Waits grow as BaseDelay * 2^(attempt-1), capped at MaxDelay.
func RetryWithExponentialBackoff(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := config.delay(attempt)

			slog.DebugContext(ctx, "retrying operation",
				"attempt", attempt+1,
				"total_attempts", config.MaxAttempts,
				"retry_delay_ms", delay.Milliseconds(),
			)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if config.Retryable != nil && !config.Retryable(err) {
			return err
		}

		slog.WarnContext(ctx, "operation attempt failed",
			"attempt", attempt+1,
			"total_attempts", config.MaxAttempts,
			"error", err,
		)
	}

	return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, lastErr)
}
