// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package name validates the two kinds of names dynenv handles.

Variable names are the keys of the server and client maps. Any non-empty
name without whitespace, '=' or null bytes is accepted; IsConventional
reports whether a name follows the UPPER_SNAKE_CASE convention so callers
can warn about the rest.

Slot names are written verbatim into the injected script as
`window.<name> = {...};`, so they must be plain JavaScript identifiers:

	if err := name.ValidateSlot("__NEXT_DYNAMIC_ENV__"); err != nil {
		// reject the configuration
	}
*/
package name
