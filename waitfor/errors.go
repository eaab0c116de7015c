// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package waitfor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Code classifies an Error.
type Code string

const (
	// CodeTimeout means the slot did not become ready within the timeout
	// and retry budget.
	CodeTimeout Code = "TIMEOUT"
	// CodeValidation means the options were invalid.
	CodeValidation Code = "VALIDATION_ERROR"
)

var (
	// ErrTimeout matches every Error with CodeTimeout.
	ErrTimeout = errors.New("environment not ready before timeout")
	// ErrInvalidOptions matches every Error with CodeValidation.
	ErrInvalidOptions = errors.New("invalid wait options")
	// ErrCallbackPanic is returned when a lifecycle callback panics.
	ErrCallbackPanic = errors.New("wait callback panicked")
)

// Error describes a failed wait.
type Error struct {
	Code    Code
	Message string
	VarName string
	// Timeout is the length of the last wait window.
	Timeout  time.Duration
	Interval time.Duration
	// Attempts counts wait windows, including the first.
	Attempts int
	// MissingKeys lists required keys still absent when the wait ended.
	MissingKeys []string

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is matches the sentinel for the error's code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Code == CodeTimeout
	case ErrInvalidOptions:
		return e.Code == CodeValidation
	}
	return false
}

// Unwrap returns the underlying cause, such as a condition compile error.
func (e *Error) Unwrap() error {
	return e.cause
}

// DebugInfo renders the error's details one per line.
func (e *Error) DebugInfo() string {
	info := []string{fmt.Sprintf("Error Code: %s", e.Code)}
	if e.VarName != "" {
		info = append(info, fmt.Sprintf("Variable: %s", e.VarName))
	}
	if e.Timeout > 0 {
		info = append(info, fmt.Sprintf("Timeout: %s", e.Timeout))
	}
	if e.Interval > 0 {
		info = append(info, fmt.Sprintf("Interval: %s", e.Interval))
	}
	if e.Attempts > 0 {
		info = append(info, fmt.Sprintf("Attempts: %d", e.Attempts))
	}
	if len(e.MissingKeys) > 0 {
		info = append(info, fmt.Sprintf("Missing Keys: %s", strings.Join(e.MissingKeys, ", ")))
	}
	return strings.Join(info, "\n")
}

func validationError(msg string, o *options, cause error) *Error {
	return &Error{
		Code:     CodeValidation,
		Message:  msg,
		VarName:  o.varName,
		Timeout:  o.timeout,
		Interval: o.interval,
		cause:    cause,
	}
}
