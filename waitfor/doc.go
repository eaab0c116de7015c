// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package waitfor waits for the injected environment slot to become available
in the browser.

The slot is checked once immediately. If it is not ready, a ticker polls it
at a fixed interval inside a wait window. When a window expires and retries
remain, the next window is the previous one times the backoff multiplier;
after the last window the wait fails with an *Error whose Code is
CodeTimeout.

	values, err := waitfor.Wait(
	    waitfor.WithRequiredKeys("API_URL", "APP_NAME"),
	    waitfor.WithTimeout(2*time.Second),
	    waitfor.WithRetries(2),
	    waitfor.OnRetry(func(attempt int, next time.Duration) {
	        slog.Warn("environment not ready", "attempt", attempt, "next", next)
	    }),
	)
	if errors.Is(err, waitfor.ErrTimeout) {
	    // show a fallback
	}

Readiness can be narrowed with WithCondition or with a CEL expression over
`env` via WithExpression. On the server there is nothing to wait for: the
wait completes at once with an empty map and no timer is armed.

Every invocation owns its timers and stops them on success, timeout and
callback panic alike.
*/
package waitfor
