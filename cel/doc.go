// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package cel wraps the CEL expression language for the two places dynenv lets
users write predicates as text: per-variable validation rules in manifests
(`value` is the candidate value) and readiness conditions for the wait
primitive (`env` is the injected mapping).

	engine := cel.NewValueEngine()
	prg, err := engine.Compile(`value.startsWith("https://")`)
	if err != nil {
	    var cerr *cel.CompileError
	    if errors.As(err, &cerr) {
	        fmt.Println(cerr.Kind, cerr.Issues)
	    }
	}
	ok, err := prg.Bool(map[string]any{"value": "https://api.example.com"})

Expressions longer than the configured maximum are rejected before parsing
and evaluation is bounded by a runtime cost limit.

Engines and programs are safe for concurrent use.
*/
package cel
