// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build js && wasm

package slot

import (
	"encoding/json"
	"syscall/js"
)

// jsGlobal reads properties of globalThis. Values are converted through
// JSON.stringify so they arrive as the same generic types the server side
// produces.
type jsGlobal struct{}

func newGlobal() Store {
	return jsGlobal{}
}

// Load implements Store.
func (jsGlobal) Load(name string) (any, bool) {
	v := js.Global().Get(name)
	if v.IsUndefined() || v.IsNull() {
		return nil, false
	}

	encoded := js.Global().Get("JSON").Call("stringify", v)
	if encoded.Type() != js.TypeString {
		return nil, false
	}

	var out any
	if err := json.Unmarshal([]byte(encoded.String()), &out); err != nil {
		return nil, false
	}
	return out, true
}
