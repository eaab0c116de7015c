// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package httperr provides errors that carry HTTP status codes.

The script handler returns errors from deep inside rendering; wrapping them
with a code lets a single place decide the response:

	if err := name.ValidateSlot(varName); err != nil {
		return httperr.WithCode(err, http.StatusBadRequest)
	}

	// in the handler
	httperr.Write(w, err, logger)

Code walks the error chain with errors.As, so wrapping with fmt.Errorf and
%w keeps the status. Errors without a code map to 500, and Write never
exposes the message of a 5xx error to the client.
*/
package httperr
