// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import "time"

// Config holds the NATS connection settings.
type Config struct {
	URL           string        `validate:"required,url"`
	Timeout       time.Duration `validate:"gt=0"`
	MaxReconnect  int           `validate:"gte=-1"`
	ReconnectWait time.Duration `validate:"gte=0"`
	// Buckets are the KV buckets opened on connect.
	Buckets []string `validate:"dive,required"`
	// CreateBuckets provisions missing buckets instead of failing.
	CreateBuckets bool
}
