// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !(js && wasm)

package slot

func newGlobal() Store {
	return NewMemory()
}
