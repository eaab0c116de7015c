// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io"
	"maps"

	"github.com/joho/godotenv"

	"github.com/stacklok/dynenv/env"
)

// DefaultDotenv is the file read by LoadDotenv when no path is given.
const DefaultDotenv = ".env"

// LoadDotenv reads .env files into a reader without touching the process
// environment. Later files override earlier ones.
func LoadDotenv(paths ...string) (env.MapReader, error) {
	if len(paths) == 0 {
		paths = []string{DefaultDotenv}
	}
	out := env.MapReader{}
	for _, p := range paths {
		values, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		maps.Copy(out, values)
	}
	return out, nil
}

// ParseDotenv reads .env formatted content from r.
func ParseDotenv(r io.Reader) (env.MapReader, error) {
	values, err := godotenv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dotenv: %w", err)
	}
	return env.MapReader(values), nil
}
