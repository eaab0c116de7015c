// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package http provides validation functions for HTTP headers and URLs.

Header validation guards the extra response headers configured on the
script handler against CRLF injection:

	if err := http.ValidateHeaderName("Cache-Control"); err != nil {
		// reject the option
	}

URL validation backs the URL rule of the schema package:

	if err := http.ValidateURL("https://api.example.com", "https"); err != nil {
		// report a validation issue
	}
*/
package http
