// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	vhttp "github.com/stacklok/dynenv/validation/http"
)

// Rule is a typed validator for a single variable. Rules are built with the
// constructors below and refined with chained modifiers:
//
//	schema.Int().Min(1).Max(65535).Default("8080")
//
// Modifiers mutate and return the receiver.
type Rule struct {
	typ      string
	parse    func(string) (any, error)
	checks   []func(any) error
	optional bool
	def      *string
}

// String accepts any string.
func String() *Rule {
	return &Rule{
		typ:   "string",
		parse: func(s string) (any, error) { return s, nil },
	}
}

// Int parses a base-10 integer into an int.
func Int() *Rule {
	return &Rule{
		typ: "integer",
		parse: func(s string) (any, error) {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("expected integer, received %q", s)
			}
			return n, nil
		},
	}
}

// Float parses a floating point number into a float64.
func Float() *Rule {
	return &Rule{
		typ: "number",
		parse: func(s string) (any, error) {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("expected number, received %q", s)
			}
			return f, nil
		},
	}
}

// Bool parses the spellings accepted by strconv.ParseBool into a bool.
func Bool() *Rule {
	return &Rule{
		typ: "boolean",
		parse: func(s string) (any, error) {
			b, err := strconv.ParseBool(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("expected boolean, received %q", s)
			}
			return b, nil
		},
	}
}

// URL accepts absolute URLs, optionally restricted to the given schemes.
// The value stays a string so it serializes unchanged.
func URL(schemes ...string) *Rule {
	return &Rule{
		typ: "url",
		parse: func(s string) (any, error) {
			if err := vhttp.ValidateURL(s, schemes...); err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

// Enum accepts exactly one of values.
func Enum(values ...string) *Rule {
	return &Rule{
		typ: "enum",
		parse: func(s string) (any, error) {
			for _, v := range values {
				if s == v {
					return s, nil
				}
			}
			return nil, fmt.Errorf("expected one of %s, received %q", strings.Join(values, " | "), s)
		},
	}
}

// Duration parses a Go duration string such as "1m30s".
func Duration() *Rule {
	return &Rule{
		typ: "duration",
		parse: func(s string) (any, error) {
			d, err := time.ParseDuration(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("expected duration, received %q", s)
			}
			return d, nil
		},
	}
}

// JSON decodes a JSON document into its generic Go representation.
func JSON() *Rule {
	return &Rule{
		typ: "json",
		parse: func(s string) (any, error) {
			var v any
			if err := json.Unmarshal([]byte(s), &v); err != nil {
				return nil, fmt.Errorf("expected JSON, received %q", s)
			}
			return v, nil
		},
	}
}

// Type returns the name of the rule's base type.
func (r *Rule) Type() string {
	return r.typ
}

// Optional lets an absent value pass as nil.
func (r *Rule) Optional() *Rule {
	r.optional = true
	return r
}

// Default substitutes v for an absent value before parsing.
func (r *Rule) Default(v string) *Rule {
	r.def = &v
	return r
}

// Min requires numbers to be at least n and strings to be at least n
// characters long.
func (r *Rule) Min(n float64) *Rule {
	return r.Check(func(v any) error {
		if size, unit, ok := measure(v); ok && size < n {
			return fmt.Errorf("must be at least %s%s", strconv.FormatFloat(n, 'f', -1, 64), unit)
		}
		return nil
	})
}

// Max requires numbers to be at most n and strings to be at most n
// characters long.
func (r *Rule) Max(n float64) *Rule {
	return r.Check(func(v any) error {
		if size, unit, ok := measure(v); ok && size > n {
			return fmt.Errorf("must be at most %s%s", strconv.FormatFloat(n, 'f', -1, 64), unit)
		}
		return nil
	})
}

// NonEmpty rejects the empty string.
func (r *Rule) NonEmpty() *Rule {
	return r.Min(1)
}

// Check adds a custom check that runs on the parsed value.
func (r *Rule) Check(fn func(any) error) *Rule {
	r.checks = append(r.checks, fn)
	return r
}

// Validate implements Validator. Every check runs, so all issues for the
// value are reported together.
func (r *Rule) Validate(value any) Result {
	if value == nil {
		switch {
		case r.def != nil:
			value = *r.def
		case r.optional:
			return Ok(nil)
		default:
			return Fail("Required")
		}
	}

	parsed, err := r.parse(stringify(value))
	if err != nil {
		return Fail(err.Error())
	}

	var issues []Issue
	for _, check := range r.checks {
		if err := check(parsed); err != nil {
			issues = append(issues, Issue{Message: err.Error()})
		}
	}
	if len(issues) > 0 {
		return Result{Issues: issues}
	}
	return Ok(parsed)
}

// stringify renders values that arrive already typed (from the injected
// JSON slot) in the form they would have had in the process environment.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func measure(v any) (size float64, unit string, ok bool) {
	switch t := v.(type) {
	case int:
		return float64(t), "", true
	case float64:
		return t, "", true
	case time.Duration:
		return float64(t), "ns", true
	case string:
		return float64(len([]rune(t))), " characters", true
	default:
		return 0, "", false
	}
}
