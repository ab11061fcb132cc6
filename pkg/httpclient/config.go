// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package httpclient

import "time"

// Config holds the HTTP client settings.
type Config struct {
	Timeout      time.Duration `validate:"gte=0"`
	MaxRetries   int           `validate:"gte=0,lte=10"`
	RetryDelay   time.Duration `validate:"gte=0"`
	RetryBackoff bool
	// MaxDelay caps the backoff delay. Zero means 30s.
	MaxDelay time.Duration `validate:"gte=0"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		RetryDelay:   time.Second,
		RetryBackoff: true,
		MaxDelay:     30 * time.Second,
	}
}
