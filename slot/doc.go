// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package slot is the read side of the global object that carries injected
// environment values from the server-rendered page into the browser.
//
// In a js/wasm build Global reads properties of globalThis; elsewhere it is
// an in-memory store. Code that needs the injected values calls Read.
package slot
