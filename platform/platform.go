// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package platform detects the execution context (server or browser) and the
// build mode (development or production) the process runs in.
package platform

import (
	"runtime"
	"strings"

	"github.com/stacklok/dynenv/env"
)

// Sensor reports whether code is executing inside a browser.
type Sensor interface {
	IsBrowser() bool
}

// SensorFunc adapts a plain function to the Sensor interface.
type SensorFunc func() bool

// IsBrowser calls f.
func (f SensorFunc) IsBrowser() bool {
	return f()
}

// Runtime reports a browser context when the binary was built for js/wasm.
var Runtime Sensor = SensorFunc(func() bool {
	return runtime.GOOS == "js"
})

// Server is a Sensor that always reports the server context.
var Server Sensor = SensorFunc(func() bool { return false })

// Browser is a Sensor that always reports the browser context.
var Browser Sensor = SensorFunc(func() bool { return true })

// Mode is the build mode used to pick default error-handling strictness.
type Mode string

const (
	// Development selects strict defaults: policy violations fail hard.
	Development Mode = "development"
	// Production selects permissive defaults: violations are logged.
	Production Mode = "production"
)

// Environment variables consulted by ModeFrom and IsBuildPhase.
const (
	AppEnvVar = "APP_ENV"
	GoEnvVar  = "GO_ENV"
	PhaseVar  = "DYNENV_PHASE"

	// BuildPhase is the PhaseVar value set while producing build artifacts,
	// when runtime variables are not available yet.
	BuildPhase = "build"
)

// ParseMode maps common spellings to a Mode. Anything that is not recognised
// as development is treated as production.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development", "dev", "local":
		return Development
	default:
		return Production
	}
}

// ModeFrom reads the build mode from APP_ENV, falling back to GO_ENV.
func ModeFrom(r env.Reader) Mode {
	if r == nil {
		return Production
	}
	if v, ok := r.LookupEnv(AppEnvVar); ok && v != "" {
		return ParseMode(v)
	}
	return ParseMode(r.Getenv(GoEnvVar))
}

// IsDevelopment reports whether m is the development mode.
func (m Mode) IsDevelopment() bool {
	return m == Development
}

// IsBuildPhase reports whether the process is producing build artifacts, in
// which case validation is skipped.
func IsBuildPhase(r env.Reader) bool {
	if r == nil {
		return false
	}
	return r.Getenv(PhaseVar) == BuildPhase
}
