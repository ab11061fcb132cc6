// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package errors

import "errors"

// Unexpected is a failure the caller cannot act on, such as an engine
// reporting an unknown condition.
type Unexpected struct {
	base
}

func (u Unexpected) Error() string {
	return u.error()
}

// NewUnexpected creates a new Unexpected error with the provided message.
func NewUnexpected(message string, err ...error) Unexpected {
	return Unexpected{base: newBase(message, err)}
}

// ServiceUnavailable means a backend or broker could not be reached.
// It is the only error kind worth retrying.
type ServiceUnavailable struct {
	base
}

func (su ServiceUnavailable) Error() string {
	return su.error()
}

// Temporary marks the error as retryable.
func (su ServiceUnavailable) Temporary() bool {
	return true
}

// NewServiceUnavailable creates a new ServiceUnavailable error with the provided message.
func NewServiceUnavailable(message string, err ...error) ServiceUnavailable {
	return ServiceUnavailable{base: newBase(message, err)}
}

// IsTemporary reports whether err or any error it wraps is temporary.
func IsTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
