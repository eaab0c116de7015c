// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package env provides an interface-based abstraction for environment variable
access. Every component that needs process-start variables (the build-mode
sensor, the manifest loader, the CLI) accepts an env.Reader instead of calling
the os package directly.

# Basic Usage

Use OSReader to read environment variables via the standard os package:

	reader := &env.OSReader{}
	value, ok := reader.LookupEnv("DATABASE_URL")

Use MapReader for a fixed set of values, and Layered to put the process
environment in front of values parsed from a .env file:

	reader := env.Layered{&env.OSReader{}, env.MapReader(fromFile)}

# Testing

A generated mock is available in the mocks sub-package:

	ctrl := gomock.NewController(t)
	mock := mocks.NewMockReader(ctrl)
	mock.EXPECT().Getenv("APP_ENV").Return("development")
*/
package env
