// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Form and query parameter names accepted by the subscriber API
const (
	ParamEmailOnly         = "email_only"
	ParamQueryAllLists     = "query_all_lists"
	ParamAddSubscribers    = "add_subscribers"
	ParamRemoveSubscribers = "remove_subscribers"
	ParamSubscription      = "subscription"
	ParamRequireConfirm    = "require_confirm"
	ParamLists             = "lists"

	// RemoveAllSubscribers is the sentinel value of remove_subscribers that
	// removes every subscriber of a list regardless of subscription mode
	RemoveAllSubscribers = "ALL"

	// FlagYes and FlagNo are the literal values of yes/no form flags
	FlagYes = "yes"
	FlagNo  = "no"
)

// Outcome messages rendered as "_msg"
const (
	ErrCodeNoSuchAccount      = "NO_SUCH_ACCOUNT"
	ErrCodeInvalidSubscriber  = "INVALID_SUBSCRIBER"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrCodeInvalidData        = "INVALID_DATA"
)
