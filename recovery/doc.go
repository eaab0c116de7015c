// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package recovery provides panic recovery middleware for HTTP handlers.
//
// A panic in the wrapped handler is logged with its stack trace and turned
// into a 500 response, so one bad request cannot take the script server
// down. http.ErrAbortHandler is re-raised untouched.
//
//	mux := http.NewServeMux()
//	mux.Handle("/env.js", handler)
//	http.ListenAndServe(":8080", recovery.Middleware(logger)(mux))
package recovery
