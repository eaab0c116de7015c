// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package httperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/stacklok/dynenv/logging"
)

// CodedError wraps an error with an HTTP status code so handlers can map
// failures to responses in one place.
type CodedError struct {
	err  error
	code int
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	return e.err.Error()
}

// Unwrap returns the underlying error.
func (e *CodedError) Unwrap() error {
	return e.err
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *CodedError) HTTPCode() int {
	return e.code
}

// WithCode wraps err with an HTTP status code. It returns nil for a nil err.
func WithCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &CodedError{err: err, code: code}
}

// New creates an error with the given message and HTTP status code.
func New(message string, code int) error {
	return &CodedError{err: errors.New(message), code: code}
}

// Code extracts the HTTP status code from err: 200 for nil, the code of the
// first CodedError in the chain, and 500 otherwise.
func Code(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.code
	}

	return http.StatusInternalServerError
}

// Write sends err as a plain-text response. Server errors are logged and
// answered with the generic status text so internal details never reach
// the client; client errors carry their own message.
func Write(w http.ResponseWriter, err error, logger *slog.Logger) {
	code := Code(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		logging.OrDefault(logger).Error("request failed", "status", code, "error", err)
		msg = http.StatusText(code)
	}
	http.Error(w, msg, code)
}
