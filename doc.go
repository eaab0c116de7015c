// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package dynenv resolves, validates and exposes environment variables whose
values are only known at runtime, and injects the client-safe ones into the
browser.

Variables are declared as server-only or client-exposed, each with an
optional validator from package schema:

	e, err := dynenv.New(
	    resolve.Entries{
	        "DATABASE_URL": resolve.Lookup(reader, "DATABASE_URL", schema.URL("postgres")),
	    },
	    resolve.Entries{
	        "API_URL": resolve.Lookup(reader, "API_URL", schema.URL("https")),
	        "PORT":    resolve.Validated(os.Getenv("PORT"), schema.Int().Min(1).Max(65535)),
	    },
	    dynenv.WithPolicy(policy.Warn),
	)

	port, _ := e.Client.Get("PORT") // int

The client half is served to the browser with package inject. Browser code
compiled to js/wasm waits for it with package waitfor and reads it through
the same accessor, which then prefers the injected values.

NewWithSchema validates the whole mapping against one JSON Schema instead.
*/
package dynenv
