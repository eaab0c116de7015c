// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package accessor provides the read-only, access-controlled view that
application code uses to read environment variables.

Every lookup checks the execution context first:

  - On the server, Get returns the resolved value of any key.
  - In the browser, reading a server-only key is an access violation. By
    default it fails in development and logs a warning in production; an
    explicit policy.Policy overrides both.
  - In the browser, other keys prefer the value injected into the global
    slot over the resolved one. Injected values are re-validated with the
    key's validator; failures follow the runtime policy, with the same
    mode-dependent default.

Raw returns the pre-validation literals for injection, restricted to client
keys in the browser. Accessors built with NewClient and NewServer carry the
IsClient and IsServer tags of a split configuration.
*/
package accessor
