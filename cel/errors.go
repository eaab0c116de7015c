// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

var (
	// ErrExpressionCheck is returned when an expression fails syntax or type checking.
	ErrExpressionCheck = errors.New("CEL expression check failed")

	// ErrEvaluation is returned when expression evaluation fails.
	ErrEvaluation = errors.New("CEL expression evaluation failed")

	// ErrInvalidResult is returned when an expression returns an unexpected type.
	ErrInvalidResult = errors.New("CEL expression returned invalid result type")
)

// Kind identifies the compilation stage that rejected an expression.
type Kind string

const (
	// KindParse indicates a syntax error.
	KindParse Kind = "parse"
	// KindCheck indicates a type checking error.
	KindCheck Kind = "check"
)

// Issue is one located problem in an expression.
type Issue struct {
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
	Msg  string `json:"msg,omitempty"`
}

// String renders the issue as "line:col: msg".
func (i Issue) String() string {
	return fmt.Sprintf("%d:%d: %s", i.Line, i.Col, i.Msg)
}

// CompileError reports why an expression could not be compiled.
type CompileError struct {
	Kind   Kind
	Source string
	Issues []Issue
	cause  error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		msgs = append(msgs, is.String())
	}
	return fmt.Sprintf("CEL %s error in expression %q: %s", e.Kind, e.Source, strings.Join(msgs, "; "))
}

// Unwrap returns the underlying error chain, which includes ErrExpressionCheck.
func (e *CompileError) Unwrap() error {
	return e.cause
}

func newCompileError(kind Kind, source string, issues *cel.Issues) error {
	out := &CompileError{
		Kind:   kind,
		Source: source,
		Issues: make([]Issue, 0, len(issues.Errors())),
		cause:  fmt.Errorf("%w: %w", ErrExpressionCheck, issues.Err()),
	}
	for _, err := range issues.Errors() {
		out.Issues = append(out.Issues, Issue{
			Line: err.Location.Line(),
			Col:  err.Location.Column(),
			Msg:  err.Message,
		})
	}
	return out
}
