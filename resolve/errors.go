// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/stacklok/dynenv/policy"
)

// KeyError records the failure of a single variable.
type KeyError struct {
	Key string
	Err error
}

// Error implements the error interface.
func (e KeyError) Error() string {
	return fmt.Sprintf("Validation failed for %s: %v", e.Key, e.Err)
}

// Unwrap returns the underlying validation error.
func (e KeyError) Unwrap() error {
	return e.Err
}

// ValidationError aggregates every failed key of one resolution.
type ValidationError struct {
	Errors []KeyError
}

// Error renders one line per failed key.
func (e *ValidationError) Error() string {
	return PlainMessage(e.Errors)
}

// Keys returns the failed variable names in order.
func (e *ValidationError) Keys() []string {
	keys := make([]string, 0, len(e.Errors))
	for _, ke := range e.Errors {
		keys = append(keys, ke.Key)
	}
	return keys
}

// Unwrap exposes the per-key errors to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, ke := range e.Errors {
		errs = append(errs, ke)
	}
	return errs
}

// HandleErrors applies p to errs once for the whole batch. It is a no-op
// when validation is skipped or nothing failed. Throw returns a
// *ValidationError; Warn and Callback return nil.
func HandleErrors(errs []KeyError, p policy.Policy, skipValidation bool, logger *slog.Logger) error {
	if skipValidation || len(errs) == 0 {
		return nil
	}
	verr := &ValidationError{Errors: errs}
	return p.Handle(verr, logger, "keys", verr.Keys())
}

// PlainMessage renders errs as the aggregate validation message:
//
//	Environment validation failed:
//	  - PORT: expected integer, received "abc"
func PlainMessage(errs []KeyError) string {
	var b strings.Builder
	b.WriteString("Environment validation failed:")
	for _, ke := range errs {
		fmt.Fprintf(&b, "\n  - %s: %v", ke.Key, ke.Err)
	}
	return b.String()
}

// PrettyMessage renders errs for a terminal, with keys aligned in a column
// and a summary footer.
func PrettyMessage(errs []KeyError) string {
	var b strings.Builder
	b.WriteString("Environment validation failed:\n")
	for _, ke := range errs {
		fmt.Fprintf(&b, "\n  %-20s %v", ke.Key, ke.Err)
	}
	noun := "errors"
	if len(errs) == 1 {
		noun = "error"
	}
	fmt.Fprintf(&b, "\n\nFound %d validation %s. Please check your environment variables.", len(errs), noun)
	return b.String()
}
