// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"

// ConfirmationFlag names how a require_confirm form value is read. The two
// API operations that enroll subscribers read the flag with opposite
// defaults, so every call site states which convention it uses.
type ConfirmationFlag int

const (
	// ConfirmUnlessNo requires confirmation unless the value is exactly "no".
	// Used when subscribing one address to many lists.
	ConfirmUnlessNo ConfirmationFlag = iota
	// ConfirmOnlyIfYes requires confirmation only when the value is exactly
	// "yes". Used when bulk adding subscribers to one list.
	ConfirmOnlyIfYes
)

// ShouldConfirm reports whether enrollment must wait for the subscriber's
// confirmation.
func ShouldConfirm(flag ConfirmationFlag, raw string) bool {
	switch flag {
	case ConfirmOnlyIfYes:
		return raw == constants.FlagYes
	default:
		return raw != constants.FlagNo
	}
}
