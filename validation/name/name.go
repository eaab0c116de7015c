// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package name validates environment variable names and global slot names.
package name

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	conventionalRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	identifierRegex   = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// maxSlotNameLength bounds the identifier written into the injected script.
const maxSlotNameLength = 256

// ValidateVariable checks that a variable name can be used as a key at all:
// it must be non-empty and free of whitespace, '=' and null bytes.
func ValidateVariable(name string) error {
	if name == "" {
		return fmt.Errorf("variable name cannot be empty")
	}
	if strings.Contains(name, "\x00") {
		return fmt.Errorf("variable name cannot contain null bytes")
	}
	if strings.ContainsAny(name, "= \t\r\n") {
		return fmt.Errorf("variable name cannot contain '=' or whitespace: %q", name)
	}
	return nil
}

// IsConventional reports whether name follows the UPPER_SNAKE_CASE
// convention. Unconventional names are allowed but worth a warning.
func IsConventional(name string) bool {
	return conventionalRegex.MatchString(name)
}

// ValidateSlot checks that a global slot name is a plain JavaScript
// identifier. The name is written verbatim into `window.<name> = ...`, so
// anything else would allow markup or script injection.
func ValidateSlot(name string) error {
	if name == "" {
		return fmt.Errorf("slot name cannot be empty")
	}
	if len(name) > maxSlotNameLength {
		return fmt.Errorf("slot name exceeds maximum length of %d bytes", maxSlotNameLength)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("slot name must be a JavaScript identifier: %q", name)
	}
	return nil
}
