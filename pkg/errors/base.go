// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package errors provides custom error types for the subscriber service.
package errors

import (
	"errors"
	"fmt"
)

// base is a struct that holds the common fields for error types
type base struct {
	message string
	err     error
}

func newBase(message string, errs []error) base {
	return base{message: message, err: errors.Join(errs...)}
}

// error is a method that returns the error message for the base struct
// any changes to the error message here will be reflected in all error types that embed base
func (b base) error() string {
	if b.err == nil {
		return b.message
	}
	return fmt.Sprintf("%s: %v", b.message, b.err)
}

// Message returns the message without the wrapped cause.
// It is the value rendered as "_msg" in API responses.
func (b base) Message() string {
	return b.message
}

// Unwrap exposes the underlying error to support errors.Is / errors.As.
func (b base) Unwrap() error {
	return b.err
}

type messager interface {
	Message() string
}

// Message returns the client facing message of err.
// Errors created by this package report their own message without the wrapped
// cause, any other error reports err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var m messager
	if errors.As(err, &m) {
		return m.Message()
	}
	return err.Error()
}
