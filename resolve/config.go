// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"log/slog"

	"github.com/stacklok/dynenv/policy"
)

// Config declares the server-only and client-exposed variables.
type Config struct {
	Server Entries
	Client Entries
}

// Options controls one pipeline run.
type Options struct {
	// Policy decides what happens to validation failures. Unset behaves
	// like policy.Throw.
	Policy policy.Policy
	// SkipValidation turns validators into transforms and suppresses
	// error handling.
	SkipValidation bool
	// EmptyStringAsUndefined treats "" as an absent value.
	EmptyStringAsUndefined bool
	Logger                 *slog.Logger
}

// Resolve merges cfg, resolves every variable and applies the policy to
// the failures. Client entries win over server entries with the same name.
// Under a non-throwing policy the result is returned together with the
// failed keys in Resolved.Errors and a nil error.
func Resolve(cfg Config, o Options) (Resolved, error) {
	merged := Merge(cfg.Server, cfg.Client, o.Logger)
	res := ProcessEntries(merged, o.SkipValidation, o.EmptyStringAsUndefined)
	if err := HandleErrors(res.Errors, o.Policy, o.SkipValidation, o.Logger); err != nil {
		return res, err
	}
	return res, nil
}

// Keys returns every declared name in sorted order.
func (c Config) Keys() []string {
	all := make(Entries, len(c.Server)+len(c.Client))
	for k, e := range c.Server {
		all[k] = e
	}
	for k, e := range c.Client {
		all[k] = e
	}
	return all.Keys()
}

// ServerOnly returns the server names that are not also client names.
func (c Config) ServerOnly() []string {
	var keys []string
	for _, k := range c.Server.Keys() {
		if _, ok := c.Client[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}
