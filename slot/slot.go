// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package slot

import (
	"sync"
)

// DefaultVarName is the global property that holds injected values.
const DefaultVarName = "__NEXT_DYNAMIC_ENV__"

// Store gives read access to named global slots.
type Store interface {
	// Load returns the value stored under name and whether it exists.
	Load(name string) (any, bool)
}

// Read returns the mapping stored under name. A missing slot, a nil value
// and anything that is not a flat object all read as absent. Every read of
// the injected slot goes through Read.
func Read(s Store, name string) (map[string]any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.Load(name)
	if !ok || v == nil {
		return nil, false
	}
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// Memory is an in-process Store. It is the global store outside the
// browser and the store tests use to simulate injection.
type Memory struct {
	mu    sync.RWMutex
	slots map[string]any
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{slots: map[string]any{}}
}

// Load implements Store.
func (m *Memory) Load(name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.slots[name]
	return v, ok
}

// Set stores v under name, replacing any previous value.
func (m *Memory) Set(name string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slots == nil {
		m.slots = map[string]any{}
	}
	m.slots[name] = v
}

// Delete removes name.
func (m *Memory) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, name)
}

var (
	globalOnce  sync.Once
	globalStore Store
)

// Global returns the process-wide store: properties of globalThis when
// running in a browser, a shared Memory store otherwise.
func Global() Store {
	globalOnce.Do(func() {
		globalStore = newGlobal()
	})
	return globalStore
}
