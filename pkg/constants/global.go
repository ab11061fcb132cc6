// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Service constants
const (
	// ServiceName is the name of this service
	ServiceName = "mailing-list-subscriber"

	// SubscriberAPIQueue is the NATS queue group for subscriber service subscriptions
	SubscriberAPIQueue = "lfx-v2-mailing-list-subscriber-api"
)

// HTTP header constants
const (
	// RequestIDHeader is the HTTP header name for request ID
	RequestIDHeader = "X-Request-Id"

	// AuthorizationHeader is the header name for bearer tokens
	AuthorizationHeader = "Authorization"

	// DefaultAPITokenHeader is the header carrying the static API token
	DefaultAPITokenHeader = "X-API-AUTH-TOKEN"

	// XOnBehalfOfHeader carries the authenticated principal on published events
	XOnBehalfOfHeader = "X-On-Behalf-Of"
)

// Environment variables
const (
	// EnvNATSURL is the environment variable for NATS server URL
	EnvNATSURL = "NATS_URL"
	// EnvBackendSource selects the membership backend implementation
	EnvBackendSource = "BACKEND_SOURCE"
	// EnvAuthSource selects the authenticator implementation
	EnvAuthSource = "AUTH_SOURCE"
)

// Backend sources
const (
	BackendSourceNATS     = "nats"
	BackendSourcePostgres = "postgres"
	BackendSourceEngine   = "engine"
	BackendSourceMock     = "mock"
)
