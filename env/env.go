// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package env

//go:generate mockgen -copyright_file=../.github/license-header.txt -source=env.go -destination=mocks/mock_reader.go -package=mocks Reader

import (
	"os"
	"sort"
)

// Reader defines an interface for environment variable access
type Reader interface {
	Getenv(key string) string
	LookupEnv(key string) (string, bool)
}

// OSReader implements Reader using the standard os package
type OSReader struct{}

// Getenv returns the value of the environment variable named by the key
func (*OSReader) Getenv(key string) string {
	return os.Getenv(key)
}

// LookupEnv returns the value of the environment variable named by the key
// and whether it was set at all.
func (*OSReader) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapReader implements Reader over a fixed set of variables. It is used for
// values loaded from .env files and in tests.
type MapReader map[string]string

// Getenv returns the value stored under key, or the empty string.
func (m MapReader) Getenv(key string) string {
	return m[key]
}

// LookupEnv returns the value stored under key and whether it exists.
func (m MapReader) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Keys returns the variable names in sorted order.
func (m MapReader) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Layered consults each reader in order and returns the first hit. Earlier
// readers take precedence, so the process environment can be layered over a
// .env file.
type Layered []Reader

// Getenv returns the first value found for key.
func (l Layered) Getenv(key string) string {
	v, _ := l.LookupEnv(key)
	return v
}

// LookupEnv returns the first value found for key.
func (l Layered) LookupEnv(key string) (string, bool) {
	for _, r := range l {
		if r == nil {
			continue
		}
		if v, ok := r.LookupEnv(key); ok {
			return v, true
		}
	}
	return "", false
}
