// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAsyncValidation is returned when a validator answers with a pending
	// result. Validation must be synchronous.
	ErrAsyncValidation = errors.New("async validation is not supported")

	// ErrValidatorPanic is returned when a validator panics.
	ErrValidatorPanic = errors.New("validator panicked")
)

// RootPath is the path reported for issues that concern the whole object.
const RootPath = "(root)"

// Issue is one problem reported by a validator.
type Issue struct {
	Message string
	// Path locates the issue inside an object. Empty for scalar values.
	Path []string
}

// String renders the issue, prefixed with its path when it has one.
func (i Issue) String() string {
	p := strings.Join(i.Path, ".")
	if p == "" || p == RootPath {
		return i.Message
	}
	return p + ": " + i.Message
}

// Result is the outcome of a validation. A result either carries the
// (possibly transformed) Value or a non-empty list of Issues. A non-nil
// Pending channel marks an asynchronous answer, which callers reject.
type Result struct {
	Value   any
	Issues  []Issue
	Pending <-chan Result
}

// Ok returns a successful result carrying v.
func Ok(v any) Result {
	return Result{Value: v}
}

// Fail returns a failed result with one issue per message.
func Fail(messages ...string) Result {
	issues := make([]Issue, 0, len(messages))
	for _, m := range messages {
		issues = append(issues, Issue{Message: m})
	}
	return Result{Issues: issues}
}

// Failed reports whether the result carries issues.
func (r Result) Failed() bool {
	return len(r.Issues) > 0
}

// Validator validates and optionally transforms a single value. The value is
// nil when the variable is absent, a string when it comes from the process
// environment, and any JSON type when it comes from the injected slot.
type Validator interface {
	Validate(value any) Result
}

// Func adapts a function to the Validator interface.
type Func func(value any) Result

// Validate calls f.
func (f Func) Validate(value any) Result {
	return f(value)
}

// IssuesError carries the issues of a failed validation.
type IssuesError struct {
	Issues []Issue
}

// Error implements the error interface.
func (e *IssuesError) Error() string {
	return FormatIssues(e.Issues)
}

// FormatIssues renders issues as one line: a single issue verbatim, several
// as a numbered list.
func FormatIssues(issues []Issue) string {
	switch len(issues) {
	case 0:
		return "Validation failed"
	case 1:
		return issues[0].String()
	}
	parts := make([]string, 0, len(issues))
	for i, is := range issues {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, is.String()))
	}
	return strings.Join(parts, ", ")
}

// Run executes v against value and converts every failure mode into an
// error: reported issues, a pending result and a panic.
func Run(v Validator, value any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrValidatorPanic, r)
		}
	}()

	res := v.Validate(value)
	if res.Pending != nil {
		return nil, ErrAsyncValidation
	}
	if res.Failed() {
		return nil, &IssuesError{Issues: res.Issues}
	}
	return res.Value, nil
}

// Transform runs v for its output only. A failed result that still
// carries a value yields that value. Otherwise a failure returns the input
// unchanged, as does a pending or panicking validator.
func Transform(v Validator, value any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = value
		}
	}()

	res := v.Validate(value)
	switch {
	case res.Pending != nil:
		return value
	case res.Failed() && res.Value == nil:
		return value
	}
	return res.Value
}
