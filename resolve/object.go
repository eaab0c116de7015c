// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/stacklok/dynenv/policy"
	"github.com/stacklok/dynenv/schema"
)

// ToValues converts raw string values into the generic form accepted by an
// ObjectValidator, applying empty-string coercion.
func ToValues(values map[string]string, emptyStringAsUndefined bool) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if v == "" && emptyStringAsUndefined {
			out[k] = nil
			continue
		}
		out[k] = v
	}
	return out
}

// ResolveObject validates the whole mapping in one call. On success it
// returns the validator's output. On failure p decides: Throw returns a
// *ValidationError, while Warn and Callback return values unchanged, not a
// partially validated mapping.
func ResolveObject(
	values map[string]any,
	v schema.ObjectValidator,
	p policy.Policy,
	skipValidation bool,
	logger *slog.Logger,
) (map[string]any, error) {
	if skipValidation || v == nil {
		return values, nil
	}

	res, err := validateObject(v, values)
	if err == nil {
		if out, ok := res.Value.(map[string]any); ok {
			return out, nil
		}
		return values, nil
	}

	if herr := HandleErrors(objectErrors(res, err), p, false, logger); herr != nil {
		return nil, herr
	}
	return values, nil
}

func validateObject(v schema.ObjectValidator, values map[string]any) (res schema.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", schema.ErrValidatorPanic, r)
		}
	}()

	res = v.ValidateObject(values)
	if res.Pending != nil {
		return res, schema.ErrAsyncValidation
	}
	if res.Failed() {
		return res, &schema.IssuesError{Issues: res.Issues}
	}
	return res, nil
}

// objectErrors groups issues by their top-level key. Issues without a path
// are reported under schema.RootPath.
func objectErrors(res schema.Result, err error) []KeyError {
	if !res.Failed() {
		return []KeyError{{Key: schema.RootPath, Err: err}}
	}

	grouped := map[string][]schema.Issue{}
	for _, is := range res.Issues {
		key := schema.RootPath
		if len(is.Path) > 0 {
			key = is.Path[0]
			is.Path = is.Path[1:]
		}
		grouped[key] = append(grouped[key], is)
	}

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	errs := make([]KeyError, 0, len(keys))
	for _, k := range keys {
		errs = append(errs, KeyError{Key: k, Err: &schema.IssuesError{Issues: grouped[k]}})
	}
	return errs
}
