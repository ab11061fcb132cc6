// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package constants holds names shared across the subscriber service: context
// keys, NATS subjects, bucket names and error codes.
package constants

// ContextKey types every value the HTTP middleware stores on a request context.
type ContextKey string

const (
	// PrincipalContextID holds the authenticated caller.
	PrincipalContextID ContextKey = "principal"
	// RequestIDContextKey holds the X-Request-ID of the request being served.
	RequestIDContextKey ContextKey = "request-id"
)
