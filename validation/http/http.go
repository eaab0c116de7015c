// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package http provides validation functions for HTTP headers and URLs.
package http

import (
	"fmt"
	"net/url"

	"golang.org/x/net/http/httpguts"
)

const (
	maxHeaderNameLength  = 256
	maxHeaderValueLength = 8192
)

// ValidateHeaderName validates that a string is a valid HTTP header name per RFC 7230.
func ValidateHeaderName(name string) error {
	if name == "" {
		return fmt.Errorf("header name cannot be empty")
	}
	if len(name) > maxHeaderNameLength {
		return fmt.Errorf("header name exceeds maximum length of %d bytes", maxHeaderNameLength)
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("invalid HTTP header name: contains invalid characters")
	}
	return nil
}

// ValidateHeaderValue validates that a string is a valid HTTP header value per RFC 7230.
// It rejects CRLF sequences and control characters.
func ValidateHeaderValue(value string) error {
	if value == "" {
		return fmt.Errorf("header value cannot be empty")
	}
	if len(value) > maxHeaderValueLength {
		return fmt.Errorf("header value exceeds maximum length of %d bytes", maxHeaderValueLength)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("invalid HTTP header value: contains control characters")
	}
	return nil
}

// ValidateURL validates that raw is an absolute URL with a scheme and a
// host. When schemes are given, the URL's scheme must be one of them.
func ValidateURL(raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" {
		return fmt.Errorf("URL must include a scheme (e.g., https://): %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host: %s", raw)
	}

	if len(schemes) == 0 {
		return nil
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("URL scheme %q is not allowed, expected one of %v", parsed.Scheme, schemes)
}
