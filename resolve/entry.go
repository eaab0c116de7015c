// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"sort"

	"github.com/stacklok/dynenv/env"
	"github.com/stacklok/dynenv/schema"
)

// Entry is one configured variable: an optional raw value and an optional
// validator. An entry without a validator behaves exactly like a raw value.
type Entry struct {
	value     *string
	validator schema.Validator
	tuple     bool
}

// Entries maps variable names to their entries.
type Entries map[string]Entry

// Raw returns an entry holding v with no validation.
func Raw(v string) Entry {
	return Entry{value: &v}
}

// Unset returns an entry for an absent variable.
func Unset() Entry {
	return Entry{}
}

// Tuple returns the single-element form: v with no validation. It resolves
// like Raw and only records how the entry was declared.
func Tuple(v string) Entry {
	return Entry{value: &v, tuple: true}
}

// Validated returns an entry that validates and transforms v.
func Validated(v string, validator schema.Validator) Entry {
	return Entry{value: &v, validator: validator, tuple: true}
}

// Lookup builds an entry from r. A variable missing from r yields an absent
// value; validator may be nil.
func Lookup(r env.Reader, key string, validator schema.Validator) Entry {
	e := Entry{validator: validator, tuple: validator != nil}
	if v, ok := r.LookupEnv(key); ok {
		e.value = &v
	}
	return e
}

// Value returns the raw value and whether it is present.
func (e Entry) Value() (string, bool) {
	if e.value == nil {
		return "", false
	}
	return *e.value, true
}

// Validator returns the entry's validator, or nil.
func (e Entry) Validator() schema.Validator {
	return e.validator
}

// IsTuple reports whether the entry was declared in tuple form.
func (e Entry) IsTuple() bool {
	return e.tuple
}

// WithValidator returns a copy of e validated by v.
func (e Entry) WithValidator(v schema.Validator) Entry {
	e.validator = v
	e.tuple = true
	return e
}

// raw returns the literal stored in the raw record: the string, or nil when
// absent.
func (e Entry) raw() any {
	if e.value == nil {
		return nil
	}
	return *e.value
}

// Keys returns the entry names in sorted order.
func (es Entries) Keys() []string {
	keys := make([]string, 0, len(es))
	for k := range es {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validators returns the validators of every entry that has one.
func (es Entries) Validators() map[string]schema.Validator {
	out := make(map[string]schema.Validator)
	for k, e := range es {
		if e.validator != nil {
			out[k] = e.validator
		}
	}
	return out
}

// FromReader builds raw entries for keys from r.
func FromReader(r env.Reader, keys ...string) Entries {
	out := make(Entries, len(keys))
	for _, k := range keys {
		out[k] = Lookup(r, k, nil)
	}
	return out
}
