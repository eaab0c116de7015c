// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Command dynenv validates runtime environment variables against a manifest
// and serves the client-safe ones to the browser.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/stacklok/dynenv/env"
)

func main() {
	a := &app{stdout: os.Stdout, stderr: os.Stderr, environ: &env.OSReader{}}
	if err := newRootCmd(a).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
