// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/stacklok/dynenv/logging"
	"github.com/stacklok/dynenv/schema"
)

// Resolved is the output of the pipeline.
type Resolved struct {
	// Processed holds validated and transformed values. Keys that failed
	// validation are absent; absent variables without a validator are
	// present with a nil value.
	Processed map[string]any
	// Raw holds the pre-validation literal of every key: a string, or nil
	// when the variable was absent.
	Raw map[string]any
	// Errors lists failed keys in key order.
	Errors []KeyError
}

// ProcessEntries resolves every entry independently. A failing key never
// prevents the others from resolving, so the result always carries a raw
// value for every key.
//
// When skipValidation is set, validators still run but only for their
// output: a failing validator leaves the input value in place.
func ProcessEntries(entries Entries, skipValidation, emptyStringAsUndefined bool) Resolved {
	res := Resolved{
		Processed: make(map[string]any, len(entries)),
		Raw:       make(map[string]any, len(entries)),
	}

	for _, key := range entries.Keys() {
		e := entries[key]
		res.Raw[key] = e.raw()

		var value any
		if v, ok := e.Value(); ok && (v != "" || !emptyStringAsUndefined) {
			value = v
		}

		if e.validator == nil {
			res.Processed[key] = value
			continue
		}

		if skipValidation {
			res.Processed[key] = schema.Transform(e.validator, value)
			continue
		}

		out, err := schema.Run(e.validator, value)
		if err != nil {
			res.Errors = append(res.Errors, KeyError{Key: key, Err: err})
			continue
		}
		res.Processed[key] = out
	}
	return res
}

// DuplicateKeys returns the sorted names present in both server and client.
func DuplicateKeys(server, client Entries) []string {
	var dups []string
	for k := range client {
		if _, ok := server[k]; ok {
			dups = append(dups, k)
		}
	}
	sort.Strings(dups)
	return dups
}

// Merge combines server and client entries. Client entries win on
// collision, and a single warning lists every colliding key.
func Merge(server, client Entries, logger *slog.Logger) Entries {
	if dups := DuplicateKeys(server, client); len(dups) > 0 {
		logging.OrDefault(logger).Warn(
			"The following environment variables are defined in both server and client configurations: "+
				strings.Join(dups, ", ")+". Client values will take precedence.",
			"keys", dups,
		)
	}

	merged := make(Entries, len(server)+len(client))
	for k, e := range server {
		merged[k] = e
	}
	for k, e := range client {
		merged[k] = e
	}
	return merged
}
