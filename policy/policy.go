// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package policy implements the tri-state error disposition accepted at every
// recoverable boundary: pipeline validation, runtime re-validation of injected
// values, and server-only access from the browser.
package policy

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/stacklok/dynenv/logging"
	"github.com/stacklok/dynenv/platform"
)

// Kind identifies the disposition of a Policy.
type Kind int

const (
	// KindUnset means no explicit policy was configured.
	KindUnset Kind = iota
	// KindThrow returns the error to the caller.
	KindThrow
	// KindWarn logs the error and lets the caller continue.
	KindWarn
	// KindCallback hands the error to a user function and lets the caller continue.
	KindCallback
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindThrow:
		return "throw"
	case KindWarn:
		return "warn"
	case KindCallback:
		return "callback"
	default:
		return "unset"
	}
}

// Policy decides what happens to a recoverable error. The zero value is
// unset; use Or or ForMode to fill in a default.
type Policy struct {
	kind Kind
	fn   func(error)
}

var (
	// Throw returns the error to the caller.
	Throw = Policy{kind: KindThrow}
	// Warn logs the error at WARN level.
	Warn = Policy{kind: KindWarn}
)

// Callback hands the error to fn. A nil fn yields an unset policy.
func Callback(fn func(error)) Policy {
	if fn == nil {
		return Policy{}
	}
	return Policy{kind: KindCallback, fn: fn}
}

// Parse maps "throw" or "warn" to a Policy. Callbacks cannot be expressed as
// text. The empty string yields an unset policy.
func Parse(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Policy{}, nil
	case "throw", "error", "fail":
		return Throw, nil
	case "warn", "warning", "log":
		return Warn, nil
	default:
		return Policy{}, fmt.Errorf("unknown error policy %q, expected \"throw\" or \"warn\"", s)
	}
}

// ForMode returns the default strictness for a build mode: Throw in
// development, Warn in production.
func ForMode(mode platform.Mode) Policy {
	if mode.IsDevelopment() {
		return Throw
	}
	return Warn
}

// Kind returns the disposition of p.
func (p Policy) Kind() Kind {
	return p.kind
}

// IsSet reports whether p was configured explicitly.
func (p Policy) IsSet() bool {
	return p.kind != KindUnset
}

// IsThrow reports whether p returns errors to the caller.
func (p Policy) IsThrow() bool {
	return p.kind == KindThrow
}

// Or returns p when it is set and def otherwise.
func (p Policy) Or(def Policy) Policy {
	if p.IsSet() {
		return p
	}
	return def
}

// String returns the configuration name of the policy.
func (p Policy) String() string {
	return p.kind.String()
}

// Handle applies the policy to err exactly once. Throw returns err, Warn logs
// it and Callback invokes the user function; both of the latter return nil.
// An unset policy behaves like Throw.
func (p Policy) Handle(err error, logger *slog.Logger, attrs ...any) error {
	if err == nil {
		return nil
	}
	switch p.kind {
	case KindWarn:
		logging.OrDefault(logger).Warn(err.Error(), attrs...)
		return nil
	case KindCallback:
		p.fn(err)
		return nil
	default:
		return err
	}
}
