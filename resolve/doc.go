// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package resolve turns declared environment variables into validated values.

Each variable is an Entry: a raw value (possibly absent) and an optional
validator. ProcessEntries resolves a set of entries independently, collecting
every failure instead of stopping at the first one:

	res := resolve.ProcessEntries(resolve.Entries{
		"API_URL": resolve.Validated(os.Getenv("API_URL"), schema.URL()),
		"PORT":    resolve.Validated("abc", schema.Int()),
		"DEBUG":   resolve.Raw("1"),
	}, false, true)
	// res.Processed has API_URL and DEBUG, res.Errors has PORT.

HandleErrors applies an error policy to the whole batch at once, and Merge
combines server and client entries with client values taking precedence.

For a single whole-object validator, such as a JSON Schema, use
ResolveObject. Unlike the per-key pipeline, a non-throwing policy makes it
return the original values unchanged.
*/
package resolve
